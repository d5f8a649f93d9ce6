// Package receive turns an untrusted original PSBT into a signed payjoin
// proposal. Every stage is a distinct type that can only be produced by the
// previous stage, so checks cannot be skipped or reordered.
package receive

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
)

type (
	// CanBroadcast decides whether the extracted original may be broadcast.
	CanBroadcast func(tx *wire.MsgTx) (bool, error)
	// IsOwned reports whether a script belongs to the receiver wallet.
	IsOwned func(script []byte) (bool, error)
	// IsKnown reports whether an outpoint was part of an earlier request.
	IsKnown func(outpoint wire.OutPoint) (bool, error)
	// IsReceiverOutput reports whether an output pays the receiver.
	IsReceiverOutput func(script []byte) (bool, error)
)

// proposal carries the data every stage shares. Stages embed it by value so
// no stage exposes another stage's transitions.
type proposal struct {
	psbt     *psbt.Packet
	params   Params
	prevOuts []*wire.TxOut
}

func (p proposal) Psbt() *psbt.Packet {
	return p.psbt
}

func (p proposal) Params() Params {
	return p.params
}

// UncheckedProposal is a parsed request that nothing has been verified on.
type UncheckedProposal struct {
	proposal
}

// NewUncheckedProposal parses the request body (base64 PSBT) and query.
func NewUncheckedProposal(body []byte, rawQuery string, header http.Header) (*UncheckedProposal, error) {
	if ct := header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "text/plain" {
			return nil, rejected(fmt.Errorf("content type %q", ct))
		}
	}

	params, err := ParseParams(rawQuery)
	if err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(bytes.TrimSpace(body)), true)
	if err != nil {
		return nil, rejected(fmt.Errorf("parse original psbt: %w", err))
	}
	if len(packet.UnsignedTx.TxIn) == 0 || len(packet.UnsignedTx.TxOut) == 0 {
		return nil, rejected(errors.New("original has no inputs or outputs"))
	}

	prevOuts, err := psbtutil.PrevOuts(packet)
	if err != nil {
		return nil, rejected(err)
	}
	for i, in := range packet.Inputs {
		if !psbtutil.Finalized(in) {
			return nil, rejected(fmt.Errorf("original input %d is not finalized", i))
		}
	}

	params.AdditionalFeeOutputIndex.WhenSome(func(index int) {
		if index >= len(packet.UnsignedTx.TxOut) {
			err = fmt.Errorf("additionalfeeoutputindex %d out of range", index)
		}
	})
	if err != nil {
		return nil, rejected(err)
	}

	return &UncheckedProposal{proposal{psbt: packet, params: params, prevOuts: prevOuts}}, nil
}

func (p *UncheckedProposal) Stage() Stage {
	return StageUnchecked
}

// CheckBroadcastSuitability extracts the original, enforces minFeeRate
// (sat/kvB, zero disables) and asks canBroadcast.
func (p *UncheckedProposal) CheckBroadcastSuitability(minFeeRate btcutil.Amount, canBroadcast CanBroadcast) (*BroadcastChecked, error) {
	clone, err := psbtutil.Clone(p.psbt)
	if err != nil {
		return nil, unavailable(err)
	}
	tx, err := psbt.Extract(clone)
	if err != nil {
		return nil, rejected(fmt.Errorf("extract original: %w", err))
	}

	if minFeeRate > 0 {
		fee, err := psbtutil.Fee(p.psbt)
		if err != nil {
			return nil, rejected(err)
		}
		vsize := (blockchain.GetTransactionWeight(btcutil.NewTx(tx)) + blockchain.WitnessScaleFactor - 1) /
			blockchain.WitnessScaleFactor
		if rate := psbtutil.FeeRate(fee, int(vsize)); rate < minFeeRate {
			return nil, rejected(fmt.Errorf("%w: %d < %d sat/kvB", ErrFeeRateTooLow, rate, minFeeRate))
		}
	}

	ok, err := canBroadcast(tx)
	if err != nil {
		return nil, unavailable(fmt.Errorf("check broadcast: %w", err))
	}
	if !ok {
		return nil, rejected(ErrNotBroadcastable)
	}

	return &BroadcastChecked{proposal: p.proposal, original: tx}, nil
}

// BroadcastChecked holds an original the receiver could broadcast itself.
type BroadcastChecked struct {
	proposal
	original *wire.MsgTx
}

func (p *BroadcastChecked) Stage() Stage {
	return StageBroadcastChecked
}

// OriginalTx is the signed original, for fallback broadcast.
func (p *BroadcastChecked) OriginalTx() *wire.MsgTx {
	return p.original
}

func (p *BroadcastChecked) CheckInputsNotOwned(isOwned IsOwned) (*InputsNotOwnedChecked, error) {
	for i, prev := range p.prevOuts {
		owned, err := isOwned(prev.PkScript)
		if err != nil {
			return nil, unavailable(fmt.Errorf("check input %d ownership: %w", i, err))
		}
		if owned {
			return nil, rejected(ErrInputsOwned)
		}
	}
	return &InputsNotOwnedChecked{proposal: p.proposal, original: p.original}, nil
}

type InputsNotOwnedChecked struct {
	proposal
	original *wire.MsgTx
}

func (p *InputsNotOwnedChecked) Stage() Stage {
	return StageInputsNotOwnedChecked
}

func (p *InputsNotOwnedChecked) CheckNoMixedInputScripts() (*UniformScriptsChecked, error) {
	class := psbtutil.ScriptClass(p.prevOuts[0].PkScript)
	if class == txscript.NonStandardTy {
		return nil, rejected(fmt.Errorf("%w: non-standard input", ErrMixedInputScripts))
	}
	for _, prev := range p.prevOuts[1:] {
		if psbtutil.ScriptClass(prev.PkScript) != class {
			return nil, rejected(ErrMixedInputScripts)
		}
	}
	return &UniformScriptsChecked{proposal: p.proposal, original: p.original, inputClass: class}, nil
}

type UniformScriptsChecked struct {
	proposal
	original   *wire.MsgTx
	inputClass txscript.ScriptClass
}

func (p *UniformScriptsChecked) Stage() Stage {
	return StageUniformScriptsChecked
}

func (p *UniformScriptsChecked) CheckNoInputsSeenBefore(isKnown IsKnown) (*InputsUnseenChecked, error) {
	for _, in := range p.psbt.UnsignedTx.TxIn {
		known, err := isKnown(in.PreviousOutPoint)
		if err != nil {
			return nil, unavailable(fmt.Errorf("check seen input %s: %w", in.PreviousOutPoint, err))
		}
		if known {
			return nil, rejected(fmt.Errorf("%w: %s", ErrInputSeen, in.PreviousOutPoint))
		}
	}
	return &InputsUnseenChecked{proposal: p.proposal, original: p.original, inputClass: p.inputClass}, nil
}

type InputsUnseenChecked struct {
	proposal
	original   *wire.MsgTx
	inputClass txscript.ScriptClass
}

func (p *InputsUnseenChecked) Stage() Stage {
	return StageInputsUnseenChecked
}

// Inputs lists the outpoints the original spends.
func (p proposal) Inputs() []wire.OutPoint {
	ops := make([]wire.OutPoint, len(p.psbt.UnsignedTx.TxIn))
	for i, in := range p.psbt.UnsignedTx.TxIn {
		ops[i] = in.PreviousOutPoint
	}
	return ops
}

func (p *InputsUnseenChecked) IdentifyReceiverOutputs(isReceiverOutput IsReceiverOutput) (*OutputsIdentified, error) {
	var owned []int
	for i, out := range p.psbt.UnsignedTx.TxOut {
		mine, err := isReceiverOutput(out.PkScript)
		if err != nil {
			return nil, unavailable(fmt.Errorf("check output %d: %w", i, err))
		}
		if mine {
			owned = append(owned, i)
		}
	}
	if len(owned) == 0 {
		return nil, rejected(ErrNoReceiverOutput)
	}

	var feeOutputIsOurs bool
	p.params.AdditionalFeeOutputIndex.WhenSome(func(index int) {
		for _, vout := range owned {
			if vout == index {
				feeOutputIsOurs = true
			}
		}
	})
	if feeOutputIsOurs {
		return nil, rejected(errors.New("sender fee output pays the receiver"))
	}

	return &OutputsIdentified{
		proposal:   p.proposal,
		original:   p.original,
		inputClass: p.inputClass,
		ownedVouts: owned,
	}, nil
}

type OutputsIdentified struct {
	proposal
	original   *wire.MsgTx
	inputClass txscript.ScriptClass
	ownedVouts []int
}

func (p *OutputsIdentified) Stage() Stage {
	return StageOutputsIdentified
}

// OwnedVouts lists the original outputs paying the receiver.
func (p *OutputsIdentified) OwnedVouts() []int {
	return append([]int(nil), p.ownedVouts...)
}

// Provisional opens the proposal for contribution and substitution.
func (p *OutputsIdentified) Provisional() (*ProvisionalProposal, error) {
	working, err := psbtutil.Clone(p.psbt)
	if err != nil {
		return nil, unavailable(err)
	}
	return newProvisional(p, working), nil
}
