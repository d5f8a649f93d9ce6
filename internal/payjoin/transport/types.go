//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/uri"
)

type (
	// Receiver answers one payjoin request; errors are *receive.Error.
	Receiver interface {
		HandleRequest(ctx context.Context, body []byte, rawQuery string, header http.Header) ([]byte, error)
	}
	PaymentIssuer interface {
		Receive(ctx context.Context, amount btcutil.Amount) (uri.URI, error)
	}
	Payer interface {
		Send(rawURI string) error
		SendWithAmount(rawURI string, amount btcutil.Amount) error
	}
	Metrics interface {
		ObserveHTTP(route string, status int, started time.Time)
	}
)
