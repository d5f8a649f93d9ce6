package model

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type EventKind string

const (
	EventPending EventKind = "pending"
	EventSuccess EventKind = "success"
	EventFailed  EventKind = "failed"
)

// Event is the terminal or intermediate outcome of one payjoin payment.
type Event struct {
	Kind         EventKind
	TxID         chainhash.Hash
	Amount       btcutil.Amount
	Counterparty string
	Reason       string
	At           time.Time
}

func PendingEvent(txid chainhash.Hash, amount btcutil.Amount, counterparty string, at time.Time) Event {
	return Event{Kind: EventPending, TxID: txid, Amount: amount, Counterparty: counterparty, At: at}
}

func SuccessEvent(txid chainhash.Hash, amount btcutil.Amount, counterparty string, at time.Time) Event {
	return Event{Kind: EventSuccess, TxID: txid, Amount: amount, Counterparty: counterparty, At: at}
}

func FailedEvent(txid chainhash.Hash, amount btcutil.Amount, counterparty, reason string, at time.Time) Event {
	return Event{Kind: EventFailed, TxID: txid, Amount: amount, Counterparty: counterparty, Reason: reason, At: at}
}

// PaymentEventRow is the persisted form of an Event.
type PaymentEventRow struct {
	Network      Network
	TxID         string
	Kind         string
	Amount       int64
	Counterparty string
	Reason       string
	CreatedAt    time.Time
}

// Row converts the event into its stored representation.
func (e Event) Row(network Network) PaymentEventRow {
	return PaymentEventRow{
		Network:      network,
		TxID:         e.TxID.String(),
		Kind:         string(e.Kind),
		Amount:       int64(e.Amount),
		Counterparty: e.Counterparty,
		Reason:       e.Reason,
		CreatedAt:    e.At,
	}
}

// SeenInput is an outpoint observed in an accepted payjoin request.
type SeenInput struct {
	Network   Network
	TxID      string
	Vout      uint32
	CreatedAt time.Time
}
