// Package envelope wraps payjoin HTTP exchanges so a relay can forward them as
// opaque bodies.
package envelope

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	ContentTypeRequest  = "message/ohttp-req"
	ContentTypeResponse = "message/ohttp-res"

	maxBody = 4 << 20
)

// EncapsulateRequest serializes a POST to target as an HTTP/1.1 message.
func EncapsulateRequest(target *url.URL, header http.Header, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inner request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		return nil, fmt.Errorf("write inner request: %w", err)
	}
	return buf.Bytes(), nil
}

// DecapsulateRequest parses a message produced by EncapsulateRequest.
func DecapsulateRequest(data []byte) (*http.Request, []byte, error) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("read inner request: %w", err)
	}
	defer req.Body.Close()

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBody))
	if err != nil {
		return nil, nil, fmt.Errorf("read inner request body: %w", err)
	}
	return req, body, nil
}

// EncapsulateResponse serializes an inner response.
func EncapsulateResponse(status int, header http.Header, body []byte) ([]byte, error) {
	if header == nil {
		header = http.Header{}
	}
	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}

	var buf bytes.Buffer
	if err := resp.Write(&buf); err != nil {
		return nil, fmt.Errorf("write inner response: %w", err)
	}
	return buf.Bytes(), nil
}

// DecapsulateResponse returns the inner status and body.
func DecapsulateResponse(data []byte) (int, []byte, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("read inner response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, fmt.Errorf("read inner response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
