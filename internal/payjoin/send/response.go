package send

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/envelope"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
)

var (
	ErrReceiverRejected       = errors.New("receiver rejected the original")
	ErrVersionMismatch        = errors.New("proposal changed version or locktime")
	ErrSenderInputChanged     = errors.New("proposal altered a sender input")
	ErrMissingSenderInput     = errors.New("proposal dropped a sender input")
	ErrReceiverInputUnsigned  = errors.New("receiver input is not finalized")
	ErrMixedInputScripts      = errors.New("receiver input script type differs")
	ErrSenderOutputDecreased  = errors.New("proposal decreased a sender output")
	ErrMissingSenderOutput    = errors.New("proposal dropped a sender output")
	ErrFeeContributionTooHigh = errors.New("fee contribution above the offered maximum")
	ErrFeeRateBelowMinimum    = errors.New("proposal fee rate below minimum")
)

// Context checks the response to one extracted request.
type Context struct {
	original   *psbt.Packet
	params     receive.Params
	payeeIndex int
	inputClass txscript.ScriptClass
	relayed    bool
}

// ProcessResponse returns nil, nil while the receiver has nothing yet and
// the checked proposal otherwise. Error replies, enveloped or BIP78 JSON, are
// ErrReceiverRejected; the sender keeps polling on those.
func (c *Context) ProcessResponse(body []byte) (*psbt.Packet, error) {
	if c.relayed && len(bytes.TrimSpace(body)) > 0 {
		status, inner, err := envelope.DecapsulateResponse(body)
		if err != nil {
			return nil, err
		}
		switch {
		case status == http.StatusAccepted || status == http.StatusNoContent:
			return nil, nil
		case status != http.StatusOK:
			return nil, rejection(inner)
		}
		body = inner
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '{' {
		return nil, rejection(body)
	}

	proposal, err := psbtutil.Decode(string(body))
	if err != nil {
		return nil, err
	}
	if err := c.checkProposal(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

func rejection(body []byte) error {
	var msg struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil || msg.ErrorCode == "" {
		return ErrReceiverRejected
	}
	return fmt.Errorf("%w: %s: %s", ErrReceiverRejected, msg.ErrorCode, msg.Message)
}

func (c *Context) checkProposal(proposal *psbt.Packet) error {
	orig, prop := c.original.UnsignedTx, proposal.UnsignedTx
	if orig.Version != prop.Version || orig.LockTime != prop.LockTime {
		return ErrVersionMismatch
	}

	prevOuts, err := c.checkInputs(proposal)
	if err != nil {
		return err
	}

	feeDecrease, err := c.checkOutputs(prop)
	if err != nil {
		return err
	}
	if feeDecrease > c.params.MaxAdditionalFeeContribution {
		return fmt.Errorf("%w: %d > %d", ErrFeeContributionTooHigh, feeDecrease, c.params.MaxAdditionalFeeContribution)
	}

	if c.params.MinFeeRate > 0 {
		var in, out int64
		scripts := make([][]byte, len(prevOuts))
		for i, prev := range prevOuts {
			in += prev.Value
			scripts[i] = prev.PkScript
		}
		for _, txOut := range prop.TxOut {
			out += txOut.Value
		}
		if out > in {
			return fmt.Errorf("proposal outputs %d exceed inputs %d", out, in)
		}
		rate := psbtutil.FeeRate(btcutil.Amount(in-out), psbtutil.EstimateVirtualSize(prop, scripts))
		if rate < c.params.MinFeeRate {
			return fmt.Errorf("%w: %d < %d sat/kvB", ErrFeeRateBelowMinimum, rate, c.params.MinFeeRate)
		}
	}
	return nil
}

// checkInputs walks the proposal keeping sender inputs in their original
// order and returns the previous outputs of every proposal input.
func (c *Context) checkInputs(proposal *psbt.Packet) ([]*wire.TxOut, error) {
	origIns := c.original.UnsignedTx.TxIn
	originals := make(map[wire.OutPoint]bool, len(origIns))
	for _, in := range origIns {
		originals[in.PreviousOutPoint] = true
	}

	prevOuts := make([]*wire.TxOut, len(proposal.UnsignedTx.TxIn))
	j := 0
	for i, in := range proposal.UnsignedTx.TxIn {
		if j < len(origIns) && in.PreviousOutPoint == origIns[j].PreviousOutPoint {
			if in.Sequence != origIns[j].Sequence {
				return nil, fmt.Errorf("%w: sequence of %s", ErrSenderInputChanged, in.PreviousOutPoint)
			}
			if psbtutil.Finalized(proposal.Inputs[i]) {
				return nil, fmt.Errorf("%w: %s carries a final script", ErrSenderInputChanged, in.PreviousOutPoint)
			}
			prev, err := psbtutil.PrevOut(c.original, j)
			if err != nil {
				return nil, err
			}
			prevOuts[i] = prev
			j++
			continue
		}

		if originals[in.PreviousOutPoint] {
			return nil, fmt.Errorf("%w: %s reordered", ErrSenderInputChanged, in.PreviousOutPoint)
		}
		if !psbtutil.Finalized(proposal.Inputs[i]) {
			return nil, fmt.Errorf("%w: %s", ErrReceiverInputUnsigned, in.PreviousOutPoint)
		}
		prev, err := psbtutil.PrevOut(proposal, i)
		if err != nil {
			return nil, fmt.Errorf("receiver input: %w", err)
		}
		if psbtutil.ScriptClass(prev.PkScript) != c.inputClass {
			return nil, ErrMixedInputScripts
		}
		if in.Sequence != origIns[0].Sequence {
			return nil, fmt.Errorf("%w: receiver input sequence differs", ErrMixedInputScripts)
		}
		prevOuts[i] = prev
	}
	if j != len(origIns) {
		return nil, ErrMissingSenderInput
	}
	return prevOuts, nil
}

// checkOutputs matches original outputs in order and returns how much the
// fee output shrank.
func (c *Context) checkOutputs(prop *wire.MsgTx) (btcutil.Amount, error) {
	origOuts := c.original.UnsignedTx.TxOut
	feeIndex := c.params.AdditionalFeeOutputIndex.UnwrapOr(-1)

	var feeDecrease btcutil.Amount
	j := 0
	for _, out := range prop.TxOut {
		if j >= len(origOuts) {
			break
		}
		orig := origOuts[j]
		isPayee := j == c.payeeIndex

		if bytes.Equal(out.PkScript, orig.PkScript) {
			switch {
			case j == feeIndex:
				if out.Value < orig.Value {
					feeDecrease = btcutil.Amount(orig.Value - out.Value)
				}
			case isPayee:
				if c.params.DisableOutputSubstitution && out.Value < orig.Value {
					return 0, fmt.Errorf("%w: payee output", ErrSenderOutputDecreased)
				}
			default:
				if out.Value < orig.Value {
					return 0, fmt.Errorf("%w: output %d", ErrSenderOutputDecreased, j)
				}
			}
			j++
			continue
		}

		if isPayee && !c.params.DisableOutputSubstitution {
			j++
		}
	}
	if j != len(origOuts) {
		return 0, ErrMissingSenderOutput
	}
	return feeDecrease, nil
}
