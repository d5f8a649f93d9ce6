package bitcoind

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"go.uber.org/zap"
)

// ErrUnknownScript is returned when a script does not decode to a single
// address on the wallet's network.
var ErrUnknownScript = errors.New("script has no single address")

// Wallet drives a bitcoind wallet. The rpc client must point at the wallet
// endpoint (/wallet/<name>) when the node has several wallets loaded.
type Wallet struct {
	rpc    RPCClient
	params *chaincfg.Params
	// feeRate is passed to walletcreatefundedpsbt in sat/vB. Zero lets the
	// node estimate.
	feeRate float64
	logger  *zap.Logger
}

func NewWallet(rpc RPCClient, params *chaincfg.Params, feeRate float64, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wallet{rpc: rpc, params: params, feeRate: feeRate, logger: logger}
}

// ListUnspent returns the spendable wallet outputs.
func (w *Wallet) ListUnspent(ctx context.Context) ([]receive.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unspent, err := w.rpc.ListUnspent()
	if err != nil {
		return nil, fmt.Errorf("list unspent: %w", err)
	}

	candidates := make([]receive.Candidate, 0, len(unspent))
	for _, u := range unspent {
		if !u.Spendable {
			continue
		}
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("unspent txid %q: %w", u.TxID, err)
		}
		script, err := hex.DecodeString(u.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("unspent %s:%d script: %w", u.TxID, u.Vout, err)
		}
		amount, err := btcutil.NewAmount(u.Amount)
		if err != nil {
			return nil, fmt.Errorf("unspent %s:%d amount: %w", u.TxID, u.Vout, err)
		}
		candidates = append(candidates, receive.Candidate{
			OutPoint: wire.OutPoint{Hash: *hash, Index: u.Vout},
			TxOut:    wire.NewTxOut(int64(amount), script),
		})
	}
	return candidates, nil
}

func (w *Wallet) NewAddress(ctx context.Context) (btcutil.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := w.rpc.GetNewAddress("")
	if err != nil {
		return nil, fmt.Errorf("get new address: %w", err)
	}
	if !addr.IsForNet(w.params) {
		return nil, fmt.Errorf("address %s is not for %s", addr, w.params.Name)
	}
	return addr, nil
}

// BuildPayjoinTransaction funds an output of amount to script from the
// wallet and returns the signed, finalized original.
func (w *Wallet) BuildPayjoinTransaction(ctx context.Context, script []byte, amount btcutil.Amount) (*psbt.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := w.address(script)
	if err != nil {
		return nil, err
	}

	options := map[string]any{}
	if w.feeRate > 0 {
		options["fee_rate"] = w.feeRate
	}
	outputs := []map[string]float64{{addr.EncodeAddress(): amount.ToBTC()}}

	var funded fundedPsbtResult
	if err := rawCall(w.rpc, methodWalletCreateFundedPsbt, &funded, []any{}, outputs, 0, options); err != nil {
		return nil, err
	}

	processed, err := w.process(funded.Psbt)
	if err != nil {
		return nil, err
	}
	if !processed.complete {
		return nil, errors.New("wallet could not sign every original input")
	}
	w.logger.Debug("original funded",
		zap.String("address", addr.EncodeAddress()),
		zap.Int64("amount", int64(amount)),
		zap.Float64("fee", funded.Fee),
	)
	return processed.packet, nil
}

// SignTransaction signs the wallet's inputs of packet in place. Inputs that
// are already finalized are left untouched.
func (w *Wallet) SignTransaction(ctx context.Context, packet *psbt.Packet) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	processed, err := w.processPacket(packet)
	if err != nil {
		return false, err
	}

	complete := true
	for i := range packet.Inputs {
		if !psbtutil.Finalized(packet.Inputs[i]) {
			packet.Inputs[i] = processed.packet.Inputs[i]
		}
		complete = complete && psbtutil.Finalized(packet.Inputs[i])
	}
	return complete, nil
}

// SignPayjoinProposal signs the inputs the receiver added to proposal.
// Inputs taken from the original keep the sender's data.
func (w *Wallet) SignPayjoinProposal(ctx context.Context, proposal, original *psbt.Packet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	processed, err := w.processPacket(proposal)
	if err != nil {
		return err
	}

	senders := make(map[wire.OutPoint]struct{}, len(original.UnsignedTx.TxIn))
	for _, in := range original.UnsignedTx.TxIn {
		senders[in.PreviousOutPoint] = struct{}{}
	}
	for i, in := range proposal.UnsignedTx.TxIn {
		if _, ok := senders[in.PreviousOutPoint]; ok {
			continue
		}
		proposal.Inputs[i] = processed.packet.Inputs[i]
	}
	return nil
}

// IsMine asks the wallet whether it can spend script.
func (w *Wallet) IsMine(ctx context.Context, script []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	addr, err := w.address(script)
	if errors.Is(err, ErrUnknownScript) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var info addressInfoResult
	if err := rawCall(w.rpc, methodGetAddressInfo, &info, addr.EncodeAddress()); err != nil {
		return false, err
	}
	return info.IsMine, nil
}

func (w *Wallet) address(script []byte) (btcutil.Address, error) {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, w.params)
	if err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(addrs) != 1 {
		return nil, ErrUnknownScript
	}
	return addrs[0], nil
}

type processed struct {
	packet   *psbt.Packet
	complete bool
}

func (w *Wallet) processPacket(packet *psbt.Packet) (processed, error) {
	b64, err := packet.B64Encode()
	if err != nil {
		return processed{}, fmt.Errorf("encode psbt: %w", err)
	}
	res, err := w.process(b64)
	if err != nil {
		return processed{}, err
	}
	if len(res.packet.Inputs) != len(packet.Inputs) {
		return processed{}, fmt.Errorf("%s returned %d inputs, sent %d",
			methodWalletProcessPsbt, len(res.packet.Inputs), len(packet.Inputs))
	}
	return res, nil
}

func (w *Wallet) process(b64 string) (processed, error) {
	var res processedPsbtResult
	// psbt, sign, sighashtype, bip32derivs, finalize
	if err := rawCall(w.rpc, methodWalletProcessPsbt, &res, b64, true, "ALL", false, true); err != nil {
		return processed{}, err
	}
	packet, err := psbtutil.Decode(res.Psbt)
	if err != nil {
		return processed{}, err
	}
	return processed{packet: packet, complete: res.Complete}, nil
}
