// Package uri implements BIP21 payment URIs carrying the payjoin endpoint.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const scheme = "bitcoin:"

var knownNetworks = []*chaincfg.Params{
	&chaincfg.MainNetParams,
	&chaincfg.TestNet3Params,
	&chaincfg.SigNetParams,
	&chaincfg.RegressionNetParams,
}

var (
	ErrInvalidURI   = errors.New("invalid payment uri")
	ErrWrongNetwork = errors.New("address is not valid for network")
	ErrNoEndpoint   = errors.New("payment uri has no payjoin endpoint")
)

// URI is a BIP21 locator extended with the payjoin parameters pj and pjos.
type URI struct {
	Address            btcutil.Address
	Amount             fn.Option[btcutil.Amount]
	Label              string
	Message            string
	Endpoint           *url.URL
	OutputSubstitution bool
}

// New returns a payjoin URI with output substitution allowed.
func New(addr btcutil.Address, amount fn.Option[btcutil.Amount], endpoint *url.URL) URI {
	return URI{
		Address:            addr,
		Amount:             amount,
		Endpoint:           endpoint,
		OutputSubstitution: true,
	}
}

// Parse decodes a BIP21 string, requiring the address to belong to params.
func Parse(raw string, params *chaincfg.Params) (URI, error) {
	if len(raw) < len(scheme) || !strings.EqualFold(raw[:len(scheme)], scheme) {
		return URI{}, fmt.Errorf("%w: missing %q scheme", ErrInvalidURI, scheme)
	}
	rest := raw[len(scheme):]

	addrPart, rawQuery, _ := strings.Cut(rest, "?")
	if addrPart == "" {
		return URI{}, fmt.Errorf("%w: empty address", ErrInvalidURI)
	}

	addr, err := btcutil.DecodeAddress(addrPart, params)
	if err != nil {
		if otherNetwork(addrPart, params) {
			return URI{}, fmt.Errorf("%w: %s", ErrWrongNetwork, params.Name)
		}
		return URI{}, fmt.Errorf("%w: decode address: %v", ErrInvalidURI, err)
	}
	if !addr.IsForNet(params) {
		return URI{}, fmt.Errorf("%w: %s", ErrWrongNetwork, params.Name)
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return URI{}, fmt.Errorf("%w: parse query: %v", ErrInvalidURI, err)
	}

	u := URI{
		Address:            addr,
		Amount:             fn.None[btcutil.Amount](),
		OutputSubstitution: true,
	}
	for key, values := range query {
		if len(values) != 1 {
			return URI{}, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidURI, key)
		}
		value := values[0]

		switch key {
		case "amount":
			amount, err := parseAmount(value)
			if err != nil {
				return URI{}, err
			}
			u.Amount = fn.Some(amount)
		case "label":
			u.Label = value
		case "message":
			u.Message = value
		case "pj":
			endpoint, err := url.Parse(value)
			if err != nil {
				return URI{}, fmt.Errorf("%w: parse pj: %v", ErrInvalidURI, err)
			}
			if endpoint.Scheme != "https" && endpoint.Scheme != "http" {
				return URI{}, fmt.Errorf("%w: pj scheme %q", ErrInvalidURI, endpoint.Scheme)
			}
			if endpoint.Host == "" {
				return URI{}, fmt.Errorf("%w: pj without host", ErrInvalidURI)
			}
			u.Endpoint = endpoint
		case "pjos":
			switch value {
			case "0":
				u.OutputSubstitution = false
			case "1":
				u.OutputSubstitution = true
			default:
				return URI{}, fmt.Errorf("%w: pjos=%q", ErrInvalidURI, value)
			}
		default:
			if strings.HasPrefix(key, "req-") {
				return URI{}, fmt.Errorf("%w: unsupported required parameter %q", ErrInvalidURI, key)
			}
		}
	}

	return u, nil
}

// otherNetwork reports whether addr is well formed for a network other than
// params. Bech32 addresses of another network fail to decode outright.
func otherNetwork(addr string, params *chaincfg.Params) bool {
	for _, net := range knownNetworks {
		if net.Net == params.Net {
			continue
		}
		if decoded, err := btcutil.DecodeAddress(addr, net); err == nil && decoded.IsForNet(net) {
			return true
		}
	}
	return false
}

func parseAmount(value string) (btcutil.Amount, error) {
	btc, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrInvalidURI, value, err)
	}
	amount, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q: %v", ErrInvalidURI, value, err)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidURI)
	}
	return amount, nil
}

// RequirePayjoin reports ErrNoEndpoint when the receiver did not advertise pj.
func (u URI) RequirePayjoin() error {
	if u.Endpoint == nil {
		return ErrNoEndpoint
	}
	return nil
}

// String renders the URI; Parse(u.String()) yields an equal URI.
func (u URI) String() string {
	var b strings.Builder
	b.WriteString(scheme)
	if u.Address != nil {
		b.WriteString(u.Address.EncodeAddress())
	}

	query := url.Values{}
	u.Amount.WhenSome(func(amount btcutil.Amount) {
		query.Set("amount", strconv.FormatFloat(amount.ToBTC(), 'f', -1, 64))
	})
	if u.Label != "" {
		query.Set("label", u.Label)
	}
	if u.Message != "" {
		query.Set("message", u.Message)
	}
	if u.Endpoint != nil {
		query.Set("pj", u.Endpoint.String())
	}
	if !u.OutputSubstitution {
		query.Set("pjos", "0")
	}

	if encoded := query.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}
	return b.String()
}
