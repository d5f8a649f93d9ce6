package rpcclient

import (
	"errors"
	"fmt"
	"net/url"
	"path"

	btcrpc "github.com/btcsuite/btcd/rpcclient"
)

// Dial builds an HTTP POST client for bitcoind. A non-empty wallet routes
// calls to /wallet/<name>.
func Dial(rawURL, user, password, wallet string) (*btcrpc.Client, error) {
	cfg, err := connConfig(rawURL, user, password, wallet)
	if err != nil {
		return nil, err
	}
	return btcrpc.New(cfg, nil)
}

func connConfig(rawURL, user, password, wallet string) (*btcrpc.ConnConfig, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	host := parsed.Host
	if wallet != "" {
		host += path.Join("/wallet", url.PathEscape(wallet))
	}
	return &btcrpc.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil
}
