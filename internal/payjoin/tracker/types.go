package tracker

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Filter is the chain-sync side that watches registered transactions.
	Filter interface {
		RegisterTx(txid chainhash.Hash, script []byte)
		RegisterOutput(outpoint wire.OutPoint, script []byte)
	}
	EventQueue interface {
		Add(event model.Event) error
	}
	Metrics interface {
		ObservePending(pending int)
		ObserveSettled(kind model.EventKind)
	}
)
