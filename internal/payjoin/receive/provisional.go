package receive

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
)

// SignProposal signs the receiver inputs of proposal in place.
type SignProposal func(proposal, original *psbt.Packet) error

// ProvisionalProposal is the mutable working copy of the original. It admits
// at most one contributed input and at most one substituted output.
type ProvisionalProposal struct {
	proposal
	original   *psbt.Packet
	originalTx *wire.MsgTx
	inputClass txscript.ScriptClass
	ownedVouts []int

	contributed    contribution
	substitutedOld []byte
	substituted    bool

	insertAt func(n int) int
}

type contribution struct {
	set      bool
	outpoint wire.OutPoint
	txOut    *wire.TxOut
}

func newProvisional(p *OutputsIdentified, working *psbt.Packet) *ProvisionalProposal {
	return &ProvisionalProposal{
		proposal:   proposal{psbt: working, params: p.params, prevOuts: p.prevOuts},
		original:   p.psbt,
		originalTx: p.original,
		inputClass: p.inputClass,
		ownedVouts: p.ownedVouts,
		insertAt:   func(n int) int { return rand.IntN(n + 1) },
	}
}

func (p *ProvisionalProposal) Stage() Stage {
	return StageProvisional
}

// OriginalOutputValues lists the output values of the sender's original.
func (p *ProvisionalProposal) OriginalOutputValues() []btcutil.Amount {
	values := make([]btcutil.Amount, len(p.original.UnsignedTx.TxOut))
	for i, out := range p.original.UnsignedTx.TxOut {
		values[i] = btcutil.Amount(out.Value)
	}
	return values
}

// OriginalInputValues lists the values spent by the sender's original.
func (p *ProvisionalProposal) OriginalInputValues() []btcutil.Amount {
	values := make([]btcutil.Amount, len(p.prevOuts))
	for i, prev := range p.prevOuts {
		values[i] = btcutil.Amount(prev.Value)
	}
	return values
}

// PaymentAmount is what the original pays the receiver.
func (p *ProvisionalProposal) PaymentAmount() btcutil.Amount {
	var sum btcutil.Amount
	for _, vout := range p.ownedVouts {
		sum += btcutil.Amount(p.original.UnsignedTx.TxOut[vout].Value)
	}
	return sum
}

// ReceiverScript is the current script of the receiver output that absorbs
// contributions and fees.
func (p *ProvisionalProposal) ReceiverScript() []byte {
	return p.psbt.UnsignedTx.TxOut[p.ownedVouts[0]].PkScript
}

func (p *ProvisionalProposal) hasInput(op wire.OutPoint) bool {
	for _, in := range p.psbt.UnsignedTx.TxIn {
		if in.PreviousOutPoint == op {
			return true
		}
	}
	return false
}

// TryPreservingPrivacy picks a candidate with the default UIH avoiding rule.
func (p *ProvisionalProposal) TryPreservingPrivacy(candidates map[btcutil.Amount]wire.OutPoint) (wire.OutPoint, error) {
	return UIHAvoidingPolicy{}.SelectInput(p, candidates)
}

// SubstituteOutputScript replaces the script of the receiver output.
func (p *ProvisionalProposal) SubstituteOutputScript(script []byte) error {
	if p.params.DisableOutputSubstitution {
		return ErrOutputSubstitutionDisabled
	}
	if p.substituted {
		return ErrAlreadySubstituted
	}
	if len(script) == 0 {
		return errors.New("empty substitute script")
	}

	out := p.psbt.UnsignedTx.TxOut[p.ownedVouts[0]]
	p.substitutedOld = out.PkScript
	out.PkScript = append([]byte(nil), script...)
	p.psbt.Outputs[p.ownedVouts[0]] = psbt.POutput{}
	p.substituted = true
	return nil
}

// ContributeWitnessInput adds the receiver's input and credits its value to
// the receiver output.
func (p *ProvisionalProposal) ContributeWitnessInput(txOut *wire.TxOut, outpoint wire.OutPoint) error {
	if p.contributed.set {
		return ErrAlreadyContributed
	}
	if txOut == nil || !psbtutil.IsWitnessScript(txOut.PkScript) {
		return ErrNotWitnessInput
	}
	if p.hasInput(outpoint) {
		return fmt.Errorf("outpoint %s already spent by the original", outpoint)
	}
	if psbtutil.ScriptClass(txOut.PkScript) != p.inputClass {
		return fmt.Errorf("contributed input script class %s differs from sender's %s",
			psbtutil.ScriptClass(txOut.PkScript), p.inputClass)
	}

	tx := p.psbt.UnsignedTx
	txIn := wire.NewTxIn(&outpoint, nil, nil)
	txIn.Sequence = tx.TxIn[0].Sequence

	at := p.insertAt(len(tx.TxIn))
	tx.TxIn = slices.Insert(tx.TxIn, at, txIn)
	p.psbt.Inputs = slices.Insert(p.psbt.Inputs, at, psbt.PInput{WitnessUtxo: txOut})

	tx.TxOut[p.ownedVouts[0]].Value += txOut.Value
	p.contributed = contribution{set: true, outpoint: outpoint, txOut: txOut}
	return nil
}

// FinalizeProposal applies fees at max(minFeeRate, sender's minfeerate),
// has the wallet sign the contributed input and strips sender data.
func (p *ProvisionalProposal) FinalizeProposal(sign SignProposal, minFeeRate btcutil.Amount) (*PayjoinProposal, error) {
	if err := p.applyFee(minFeeRate); err != nil {
		return nil, err
	}

	if err := sign(p.psbt, p.original); err != nil {
		return nil, unavailable(fmt.Errorf("sign proposal: %w", err))
	}

	receiverInputs := make(map[int]bool)
	for i, in := range p.psbt.UnsignedTx.TxIn {
		if p.contributed.set && in.PreviousOutPoint == p.contributed.outpoint {
			receiverInputs[i] = true
			if !psbtutil.Finalized(p.psbt.Inputs[i]) {
				return nil, unavailable(ErrUnsignedReceiverInput)
			}
		}
	}

	for i := range p.psbt.Inputs {
		if receiverInputs[i] {
			in := &p.psbt.Inputs[i]
			in.PartialSigs = nil
			in.Bip32Derivation = nil
			in.TaprootBip32Derivation = nil
			continue
		}
		p.psbt.Inputs[i] = psbt.PInput{}
	}
	for i := range p.psbt.Outputs {
		p.psbt.Outputs[i] = psbt.POutput{}
	}

	if err := p.psbt.SanityCheck(); err != nil {
		return nil, unavailable(fmt.Errorf("proposal not well formed: %w", err))
	}

	var locked []wire.OutPoint
	if p.contributed.set {
		locked = append(locked, p.contributed.outpoint)
	}
	return &PayjoinProposal{proposal: p.proposal, lockedInputs: locked}, nil
}

func (p *ProvisionalProposal) applyFee(minFeeRate btcutil.Amount) error {
	rate := max(minFeeRate, p.params.MinFeeRate)

	extra := 0
	if p.contributed.set {
		extra += txsizes.GetMinInputVirtualSize(p.contributed.txOut.PkScript)
	}
	if p.substituted {
		if grown := len(p.ReceiverScript()) - len(p.substitutedOld); grown > 0 {
			extra += grown
		}
	}
	if extra == 0 || rate == 0 {
		return nil
	}

	extraFee := txrules.FeeForSerializeSize(rate, extra)

	var senderShare btcutil.Amount
	var err error
	p.params.AdditionalFeeOutputIndex.WhenSome(func(index int) {
		senderShare = min(extraFee, p.params.MaxAdditionalFeeContribution)
		out := p.psbt.UnsignedTx.TxOut[index]
		if !bytes.Equal(out.PkScript, p.original.UnsignedTx.TxOut[index].PkScript) {
			err = errors.New("sender fee output changed")
			return
		}
		err = deduct(out, senderShare)
	})
	if err != nil {
		return &Error{Code: CodeNotEnoughMoney, cause: fmt.Errorf("sender fee output: %w", err)}
	}

	if err := deduct(p.psbt.UnsignedTx.TxOut[p.ownedVouts[0]], extraFee-senderShare); err != nil {
		return &Error{Code: CodeNotEnoughMoney, cause: fmt.Errorf("receiver output: %w", err)}
	}
	return nil
}

func deduct(out *wire.TxOut, amount btcutil.Amount) error {
	remaining := &wire.TxOut{Value: out.Value - int64(amount), PkScript: out.PkScript}
	if remaining.Value < 0 || txrules.IsDustOutput(remaining, txrules.DefaultRelayFeePerKb) {
		return fmt.Errorf("deducting %d leaves output %d below dust", amount, out.Value)
	}
	out.Value -= int64(amount)
	return nil
}

// PayjoinProposal is the signed proposal returned to the sender.
type PayjoinProposal struct {
	proposal
	lockedInputs []wire.OutPoint
}

func (p *PayjoinProposal) Stage() Stage {
	return StageFinalized
}

// LockedInputs are the receiver outpoints the proposal spends.
func (p *PayjoinProposal) LockedInputs() []wire.OutPoint {
	return p.lockedInputs
}

// Base64 serializes the proposal for the response body.
func (p *PayjoinProposal) Base64() (string, error) {
	return p.psbt.B64Encode()
}
