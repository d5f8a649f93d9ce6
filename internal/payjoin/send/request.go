// Package send builds payjoin requests for a signed original and checks the
// receiver's proposal before the sender signs it.
package send

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/envelope"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/uri"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	ErrOriginalNotSigned = errors.New("original psbt is not fully signed")
	ErrPayeeNotFound     = errors.New("original does not pay the uri address")
)

// Request is one outbound POST.
type Request struct {
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// RequestBuilder derives requests from a signed original and a payment URI.
type RequestBuilder struct {
	original    *psbt.Packet
	uri         uri.URI
	payeeIndex  int
	inputClass  txscript.ScriptClass
	disableSubs bool
}

func NewRequestBuilder(original *psbt.Packet, u uri.URI) (*RequestBuilder, error) {
	if err := u.RequirePayjoin(); err != nil {
		return nil, err
	}
	prevOuts, err := psbtutil.PrevOuts(original)
	if err != nil {
		return nil, fmt.Errorf("original utxo data: %w", err)
	}
	for _, in := range original.Inputs {
		if !psbtutil.Finalized(in) {
			return nil, ErrOriginalNotSigned
		}
	}

	payeeScript, err := txscript.PayToAddrScript(u.Address)
	if err != nil {
		return nil, fmt.Errorf("payee script: %w", err)
	}
	payeeIndex := -1
	for i, out := range original.UnsignedTx.TxOut {
		if bytes.Equal(out.PkScript, payeeScript) {
			payeeIndex = i
			break
		}
	}
	if payeeIndex < 0 {
		return nil, ErrPayeeNotFound
	}

	return &RequestBuilder{
		original:    original,
		uri:         u,
		payeeIndex:  payeeIndex,
		inputClass:  psbtutil.ScriptClass(prevOuts[0].PkScript),
		disableSubs: !u.OutputSubstitution,
	}, nil
}

// AlwaysDisableOutputSubstitution forbids substitution regardless of pjos.
func (b *RequestBuilder) AlwaysDisableOutputSubstitution(disable bool) *RequestBuilder {
	b.disableSubs = disable || !b.uri.OutputSubstitution
	return b
}

// BuildNonIncentivizing offers the fee of exactly one extra input of the
// sender's script type at minFeeRate, taken from the change output when the
// original has one.
func (b *RequestBuilder) BuildNonIncentivizing(minFeeRate btcutil.Amount) (*RequestContext, error) {
	params := receive.Params{
		Version:                   1,
		DisableOutputSubstitution: b.disableSubs,
		AdditionalFeeOutputIndex:  fn.None[int](),
		MinFeeRate:                minFeeRate,
	}

	changeIndex := -1
	if outs := b.original.UnsignedTx.TxOut; len(outs) == 2 {
		changeIndex = 1 - b.payeeIndex
	}

	if changeIndex >= 0 && minFeeRate > 0 {
		prev, err := psbtutil.PrevOut(b.original, 0)
		if err != nil {
			return nil, err
		}
		contribution := txrules.FeeForSerializeSize(minFeeRate, txsizes.GetMinInputVirtualSize(prev.PkScript))
		change := b.original.UnsignedTx.TxOut[changeIndex]
		remaining := &wire.TxOut{Value: change.Value - int64(contribution), PkScript: change.PkScript}
		if remaining.Value > 0 && !txrules.IsDustOutput(remaining, txrules.DefaultRelayFeePerKb) {
			params.AdditionalFeeOutputIndex = fn.Some(changeIndex)
			params.MaxAdditionalFeeContribution = contribution
		}
	}

	return &RequestContext{
		original:   b.original,
		uri:        b.uri,
		params:     params,
		payeeIndex: b.payeeIndex,
		inputClass: b.inputClass,
	}, nil
}

// RequestContext holds the negotiated parameters of one attempt.
type RequestContext struct {
	original   *psbt.Packet
	uri        uri.URI
	params     receive.Params
	payeeIndex int
	inputClass txscript.ScriptClass
}

func (r *RequestContext) Params() receive.Params {
	return r.params
}

// Extract produces a fresh request and the context needed to check its
// response. A nil relay posts straight to the receiver endpoint.
func (r *RequestContext) Extract(relay *url.URL) (Request, *Context, error) {
	original, err := psbtutil.Clone(r.original)
	if err != nil {
		return Request{}, nil, err
	}
	b64, err := original.B64Encode()
	if err != nil {
		return Request{}, nil, fmt.Errorf("encode original: %w", err)
	}

	target := *r.uri.Endpoint
	query := target.Query()
	extra, err := url.ParseQuery(r.params.Encode())
	if err != nil {
		return Request{}, nil, fmt.Errorf("encode params: %w", err)
	}
	for key, values := range extra {
		query[key] = values
	}
	target.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Content-Type", "text/plain")

	ctx := &Context{
		original:   original,
		params:     r.params,
		payeeIndex: r.payeeIndex,
		inputClass: r.inputClass,
		relayed:    relay != nil,
	}

	if relay == nil {
		return Request{URL: &target, Header: header, Body: []byte(b64)}, ctx, nil
	}

	body, err := envelope.EncapsulateRequest(&target, header, []byte(b64))
	if err != nil {
		return Request{}, nil, err
	}
	outer := http.Header{}
	outer.Set("Content-Type", envelope.ContentTypeRequest)
	relayURL := *relay
	return Request{URL: &relayURL, Header: outer, Body: body}, ctx, nil
}
