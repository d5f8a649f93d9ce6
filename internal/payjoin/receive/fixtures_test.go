package receive

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/stretchr/testify/require"
)

func p2wpkh(seed byte) []byte {
	return append([]byte{0x00, 0x14}, bytes.Repeat([]byte{seed}, 20)...)
}

func p2tr(seed byte) []byte {
	return append([]byte{0x51, 0x20}, bytes.Repeat([]byte{seed}, 32)...)
}

func p2sh(seed byte) []byte {
	script := append([]byte{0xa9, 0x14}, bytes.Repeat([]byte{seed}, 20)...)
	return append(script, 0x87)
}

func outpoint(seed byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = seed
	hash[31] = seed
	return wire.OutPoint{Hash: hash, Index: index}
}

func fakeWitness(t *testing.T) []byte {
	t.Helper()

	witness, err := psbtutil.SerializeWitness(wire.TxWitness{bytes.Repeat([]byte{0x30}, 71), bytes.Repeat([]byte{0x02}, 33)})
	require.NoError(t, err)
	return witness
}

var (
	receiverScript = p2wpkh(0xaa)
	changeScript   = p2wpkh(0xbb)
	senderScript   = p2wpkh(0xcc)
)

type originalShape struct {
	inputs  []*wire.TxOut
	outputs []*wire.TxOut
}

func defaultOriginal() originalShape {
	return originalShape{
		inputs: []*wire.TxOut{{Value: 100_000, PkScript: senderScript}},
		outputs: []*wire.TxOut{
			{Value: 80_000, PkScript: receiverScript},
			{Value: 19_000, PkScript: changeScript},
		},
	}
}

func buildOriginal(t *testing.T, shape originalShape) *psbt.Packet {
	t.Helper()

	ops := make([]*wire.OutPoint, len(shape.inputs))
	seqs := make([]uint32, len(shape.inputs))
	for i := range shape.inputs {
		op := outpoint(byte(i+1), uint32(i))
		ops[i] = &op
		seqs[i] = wire.MaxTxInSequenceNum - 2
	}
	packet, err := psbt.New(ops, shape.outputs, 2, 0, seqs)
	require.NoError(t, err)

	for i, prev := range shape.inputs {
		packet.Inputs[i].WitnessUtxo = prev
		packet.Inputs[i].FinalScriptWitness = fakeWitness(t)
	}
	return packet
}

func encode(t *testing.T, packet *psbt.Packet) []byte {
	t.Helper()

	b64, err := packet.B64Encode()
	require.NoError(t, err)
	return []byte(b64)
}

func textHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "text/plain")
	return header
}

func isReceiver(script []byte) (bool, error) {
	return bytes.Equal(script, receiverScript), nil
}

// signAll finalizes every contributed (non-original) input.
func signAll(t *testing.T) SignProposal {
	return func(proposal, original *psbt.Packet) error {
		originals := make(map[wire.OutPoint]bool)
		for _, in := range original.UnsignedTx.TxIn {
			originals[in.PreviousOutPoint] = true
		}
		for i, in := range proposal.UnsignedTx.TxIn {
			if originals[in.PreviousOutPoint] {
				continue
			}
			proposal.Inputs[i].FinalScriptWitness = fakeWitness(t)
		}
		return nil
	}
}
