// Package psbtutil holds PSBT accounting helpers shared by both payjoin roles.
package psbtutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// unsigned input: outpoint(36) + empty script length(1) + sequence(4).
const bareInputSize = 41

var ErrMissingUtxo = errors.New("psbt input has no previous output")

// PrevOut returns the output spent by input i, from witness or full utxo data.
func PrevOut(p *psbt.Packet, i int) (*wire.TxOut, error) {
	if i < 0 || i >= len(p.Inputs) || i >= len(p.UnsignedTx.TxIn) {
		return nil, fmt.Errorf("input %d out of range", i)
	}
	in := p.Inputs[i]
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}
	if in.NonWitnessUtxo != nil {
		prev := p.UnsignedTx.TxIn[i].PreviousOutPoint
		if in.NonWitnessUtxo.TxHash() != prev.Hash {
			return nil, fmt.Errorf("input %d: non-witness utxo does not match outpoint", i)
		}
		if int(prev.Index) >= len(in.NonWitnessUtxo.TxOut) {
			return nil, fmt.Errorf("input %d: outpoint index out of range", i)
		}
		return in.NonWitnessUtxo.TxOut[prev.Index], nil
	}
	return nil, fmt.Errorf("input %d: %w", i, ErrMissingUtxo)
}

// PrevOuts resolves every input of the packet.
func PrevOuts(p *psbt.Packet) ([]*wire.TxOut, error) {
	outs := make([]*wire.TxOut, len(p.UnsignedTx.TxIn))
	for i := range p.UnsignedTx.TxIn {
		out, err := PrevOut(p, i)
		if err != nil {
			return nil, err
		}
		outs[i] = out
	}
	return outs, nil
}

// Fee is the sum of inputs minus the sum of outputs.
func Fee(p *psbt.Packet) (btcutil.Amount, error) {
	prevOuts, err := PrevOuts(p)
	if err != nil {
		return 0, err
	}
	var in, out int64
	for _, prev := range prevOuts {
		in += prev.Value
	}
	for _, txOut := range p.UnsignedTx.TxOut {
		out += txOut.Value
	}
	if out > in {
		return 0, fmt.Errorf("outputs %d exceed inputs %d", out, in)
	}
	return btcutil.Amount(in - out), nil
}

// EstimateVirtualSize estimates the signed size of tx, assuming each input
// will carry the minimal witness or script for its previous output script.
func EstimateVirtualSize(tx *wire.MsgTx, prevScripts [][]byte) int {
	bare := tx.Copy()
	for _, in := range bare.TxIn {
		in.SignatureScript = nil
		in.Witness = nil
	}
	size := bare.SerializeSizeStripped()
	for _, script := range prevScripts {
		size += txsizes.GetMinInputVirtualSize(script) - bareInputSize
	}
	return size
}

// EstimatePacketVirtualSize is EstimateVirtualSize for a packet with utxo data.
func EstimatePacketVirtualSize(p *psbt.Packet) (int, error) {
	prevOuts, err := PrevOuts(p)
	if err != nil {
		return 0, err
	}
	scripts := make([][]byte, len(prevOuts))
	for i, prev := range prevOuts {
		scripts[i] = prev.PkScript
	}
	return EstimateVirtualSize(p.UnsignedTx, scripts), nil
}

// FeeRate expresses fee over vsize in satoshis per kilo-vbyte.
func FeeRate(fee btcutil.Amount, vsize int) btcutil.Amount {
	if vsize <= 0 {
		return 0
	}
	return fee * 1000 / btcutil.Amount(vsize)
}

// SatPerVByte converts a sat/vB rate to sat/kvB.
func SatPerVByte(rate float64) btcutil.Amount {
	return btcutil.Amount(rate * 1000)
}

// Finalized reports whether the input already carries a final script.
func Finalized(in psbt.PInput) bool {
	return len(in.FinalScriptSig) > 0 || len(in.FinalScriptWitness) > 0
}

// ScriptClass classifies a previous output script.
func ScriptClass(script []byte) txscript.ScriptClass {
	return txscript.GetScriptClass(script)
}

// IsWitnessScript reports whether the script is a native segwit program.
func IsWitnessScript(script []byte) bool {
	return txscript.IsWitnessProgram(script)
}

// Clone deep-copies a packet through its serialization.
func Clone(p *psbt.Packet) (*psbt.Packet, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize psbt: %w", err)
	}
	clone, err := psbt.NewFromRawBytes(&buf, false)
	if err != nil {
		return nil, fmt.Errorf("parse psbt: %w", err)
	}
	return clone, nil
}

// Decode parses a base64 PSBT.
func Decode(b64 string) (*psbt.Packet, error) {
	p, err := psbt.NewFromRawBytes(bytes.NewReader(bytes.TrimSpace([]byte(b64))), true)
	if err != nil {
		return nil, fmt.Errorf("decode psbt: %w", err)
	}
	return p, nil
}

// SerializeWitness encodes a witness stack as stored in FinalScriptWitness.
func SerializeWitness(stack wire.TxWitness) ([]byte, error) {
	var buf bytes.Buffer
	if err := psbt.WriteTxWitness(&buf, stack); err != nil {
		return nil, fmt.Errorf("serialize witness: %w", err)
	}
	return buf.Bytes(), nil
}
