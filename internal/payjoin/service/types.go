package service

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/send"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Wallet interface {
		ListUnspent(ctx context.Context) ([]receive.Candidate, error)
		NewAddress(ctx context.Context) (btcutil.Address, error)
		// BuildPayjoinTransaction funds and signs an original paying amount
		// to script.
		BuildPayjoinTransaction(ctx context.Context, script []byte, amount btcutil.Amount) (*psbt.Packet, error)
		// SignTransaction signs the wallet's inputs and reports whether the
		// packet is now complete.
		SignTransaction(ctx context.Context, packet *psbt.Packet) (bool, error)
		SignPayjoinProposal(ctx context.Context, proposal, original *psbt.Packet) error
		IsMine(ctx context.Context, script []byte) (bool, error)
	}
	Broadcaster interface {
		Broadcast(ctx context.Context, tx *wire.MsgTx) error
		CanBroadcast(ctx context.Context, tx *wire.MsgTx) (bool, error)
	}
	EventQueue interface {
		Add(event model.Event) error
	}
	RelayClient interface {
		Post(ctx context.Context, req send.Request) ([]byte, error)
	}
	PaymentTracker interface {
		Track(tx *wire.MsgTx, receiver btcutil.Address, amount btcutil.Amount, isMine func(script []byte) (bool, error)) error
		Forget(txid chainhash.Hash) bool
	}
	SeenInputs interface {
		Contains(ctx context.Context, outpoint wire.OutPoint) (bool, error)
		Remember(ctx context.Context, outpoints []wire.OutPoint) error
	}
	NegotiatorMetrics interface {
		ObserveAttempt(outcome string)
		ObserveNegotiation(outcome string, started time.Time)
	}
	ReceiverMetrics interface {
		ObserveRequest(code string, stage receive.Stage, started time.Time)
	}
)
