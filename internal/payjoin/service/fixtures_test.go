package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/seen"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/send"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/uri"
	"github.com/stretchr/testify/require"
)

var (
	params = &chaincfg.RegressionNetParams

	senderInputScript = p2wpkh(0xcc)
	changeScript      = p2wpkh(0xbb)
	candidateScript   = p2wpkh(0xdd)

	originalOutpoint  = wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	candidateOutpoint = wire.OutPoint{Hash: chainhash.Hash{9}, Index: 3}
)

func p2wpkh(seed byte) []byte {
	return append([]byte{0x00, 0x14}, bytes.Repeat([]byte{seed}, 20)...)
}

func address(t require.TestingT, seed byte) btcutil.Address {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(bytes.Repeat([]byte{seed}, 20), params)
	require.NoError(t, err)
	return addr
}

func scriptOf(t require.TestingT, addr btcutil.Address) []byte {
	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return script
}

func fakeWitness(t require.TestingT) []byte {
	w, err := psbtutil.SerializeWitness(wire.TxWitness{bytes.Repeat([]byte{0x30}, 71), bytes.Repeat([]byte{0x02}, 33)})
	require.NoError(t, err)
	return w
}

// signedOriginal pays amount to payee from a 100k sender input and keeps
// 1k sats as fee.
func signedOriginal(t require.TestingT, payee []byte, amount btcutil.Amount) *psbt.Packet {
	p, err := psbt.New(
		[]*wire.OutPoint{&originalOutpoint},
		[]*wire.TxOut{
			{Value: int64(amount), PkScript: payee},
			{Value: 100_000 - int64(amount) - 1_000, PkScript: changeScript},
		},
		2, 0, []uint32{wire.MaxTxInSequenceNum - 2},
	)
	require.NoError(t, err)
	p.Inputs[0].WitnessUtxo = &wire.TxOut{Value: 100_000, PkScript: senderInputScript}
	p.Inputs[0].FinalScriptWitness = fakeWitness(t)
	return p
}

func pjURI(t require.TestingT, addr btcutil.Address, amount string) string {
	raw := "bitcoin:" + addr.EncodeAddress() + "?pj=" + url.QueryEscape("https://receiver.example/pj")
	if amount != "" {
		raw += "&amount=" + amount
	}
	return raw
}

// senderWallet funds originals from one input and signs every unsigned input.
type senderWallet struct {
	t require.TestingT
}

func (w senderWallet) ListUnspent(context.Context) ([]receive.Candidate, error) { return nil, nil }

func (w senderWallet) NewAddress(context.Context) (btcutil.Address, error) {
	return nil, errors.New("sender wallet issues no addresses")
}

func (w senderWallet) BuildPayjoinTransaction(_ context.Context, script []byte, amount btcutil.Amount) (*psbt.Packet, error) {
	return signedOriginal(w.t, script, amount), nil
}

func (w senderWallet) SignTransaction(_ context.Context, p *psbt.Packet) (bool, error) {
	for i := range p.Inputs {
		if !psbtutil.Finalized(p.Inputs[i]) && p.Inputs[i].WitnessUtxo != nil &&
			bytes.Equal(p.Inputs[i].WitnessUtxo.PkScript, senderInputScript) {
			p.Inputs[i].FinalScriptWitness = fakeWitness(w.t)
		}
	}
	for _, in := range p.Inputs {
		if !psbtutil.Finalized(in) {
			return false, nil
		}
	}
	return true, nil
}

func (w senderWallet) SignPayjoinProposal(context.Context, *psbt.Packet, *psbt.Packet) error {
	return errors.New("sender wallet does not receive")
}

func (w senderWallet) IsMine(_ context.Context, script []byte) (bool, error) {
	return bytes.Equal(script, changeScript), nil
}

// receiverWallet owns the payment address and one spendable candidate.
type receiverWallet struct {
	t       require.TestingT
	address btcutil.Address
}

func (w receiverWallet) ListUnspent(context.Context) ([]receive.Candidate, error) {
	return []receive.Candidate{{
		OutPoint: candidateOutpoint,
		TxOut:    &wire.TxOut{Value: 50_000, PkScript: candidateScript},
	}}, nil
}

func (w receiverWallet) NewAddress(context.Context) (btcutil.Address, error) {
	return w.address, nil
}

func (w receiverWallet) BuildPayjoinTransaction(context.Context, []byte, btcutil.Amount) (*psbt.Packet, error) {
	return nil, errors.New("receiver wallet does not send")
}

func (w receiverWallet) SignTransaction(context.Context, *psbt.Packet) (bool, error) {
	return false, errors.New("receiver wallet does not send")
}

func (w receiverWallet) SignPayjoinProposal(_ context.Context, proposal, _ *psbt.Packet) error {
	for i, in := range proposal.UnsignedTx.TxIn {
		if in.PreviousOutPoint == candidateOutpoint {
			proposal.Inputs[i].FinalScriptWitness = fakeWitness(w.t)
		}
	}
	return nil
}

func (w receiverWallet) IsMine(_ context.Context, script []byte) (bool, error) {
	owned := hex.EncodeToString(script)
	return owned == hex.EncodeToString(scriptOf(w.t, w.address)) || owned == hex.EncodeToString(candidateScript), nil
}

type recordingBroadcaster struct {
	mu  sync.Mutex
	txs []*wire.MsgTx
	err error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, tx *wire.MsgTx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.txs = append(b.txs, tx)
	return nil
}

func (b *recordingBroadcaster) CanBroadcast(context.Context, *wire.MsgTx) (bool, error) {
	return true, nil
}

func (b *recordingBroadcaster) broadcast() []*wire.MsgTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*wire.MsgTx(nil), b.txs...)
}

type relayFunc func(ctx context.Context, req send.Request) ([]byte, error)

func (f relayFunc) Post(ctx context.Context, req send.Request) ([]byte, error) {
	return f(ctx, req)
}

type nopNegotiatorMetrics struct{}

func (nopNegotiatorMetrics) ObserveAttempt(string) {}
func (nopNegotiatorMetrics) ObserveNegotiation(string, time.Time) {}

type nopReceiverMetrics struct{}

func (nopReceiverMetrics) ObserveRequest(string, receive.Stage, time.Time) {}

func newTestReceiver(t *testing.T, addr btcutil.Address) *Receiver {
	t.Helper()

	endpoint, err := url.Parse("https://receiver.example/pj")
	require.NoError(t, err)
	r, err := NewReceiver(ReceiverConfig{
		Wallet:      receiverWallet{t: t, address: addr},
		Broadcaster: &recordingBroadcaster{},
		Seen:        seen.NewMemory(),
		Metrics:     nopReceiverMetrics{},
		Endpoint:    endpoint,
	})
	require.NoError(t, err)
	return r
}

// originalRequest builds the direct request a sender would post for an 80k
// payment to addr.
func originalRequest(t *testing.T, addr btcutil.Address) send.Request {
	t.Helper()

	u, err := uri.Parse(pjURI(t, addr, "0.0008"), params)
	require.NoError(t, err)
	original := signedOriginal(t, scriptOf(t, addr), 80_000)
	builder, err := send.NewRequestBuilder(original, u)
	require.NoError(t, err)
	reqCtx, err := builder.BuildNonIncentivizing(0)
	require.NoError(t, err)
	req, _, err := reqCtx.Extract(nil)
	require.NoError(t, err)
	return req
}
