package send

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
)

// ReattachOriginalInputs restores the sender's per-input data that the
// receiver stripped. Inputs are matched while they stay aligned with the
// original order; receiver inputs in between are skipped. It returns the
// number of inputs restored.
func ReattachOriginalInputs(proposal, original *psbt.Packet) int {
	origIns := original.UnsignedTx.TxIn
	j := 0
	for i, in := range proposal.UnsignedTx.TxIn {
		if j >= len(origIns) {
			break
		}
		if in.PreviousOutPoint != origIns[j].PreviousOutPoint {
			continue
		}

		src := original.Inputs[j]
		dst := &proposal.Inputs[i]
		dst.WitnessUtxo = src.WitnessUtxo
		dst.NonWitnessUtxo = src.NonWitnessUtxo
		dst.RedeemScript = src.RedeemScript
		dst.WitnessScript = src.WitnessScript
		dst.Bip32Derivation = src.Bip32Derivation
		dst.SighashType = src.SighashType
		j++
	}
	return j
}
