package receive

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"go.uber.org/zap"
)

// Checks are the policy decisions the validation stages consult.
type Checks struct {
	// MinFeeRate in sat/kvB applies to the original and to the added input.
	MinFeeRate       btcutil.Amount
	CanBroadcast     CanBroadcast
	IsOwned          IsOwned
	IsKnown          IsKnown
	IsReceiverOutput IsReceiverOutput
}

func (c Checks) withDefaults() Checks {
	if c.CanBroadcast == nil {
		c.CanBroadcast = func(*wire.MsgTx) (bool, error) { return true, nil }
	}
	if c.IsOwned == nil {
		c.IsOwned = func([]byte) (bool, error) { return false, nil }
	}
	if c.IsKnown == nil {
		c.IsKnown = func(wire.OutPoint) (bool, error) { return false, nil }
	}
	return c
}

// Validate runs every check up to and including output identification.
func Validate(body []byte, rawQuery string, header http.Header, checks Checks, onStage func(Stage)) (*OutputsIdentified, error) {
	if checks.IsReceiverOutput == nil {
		return nil, unavailable(errors.New("receiver output check is required"))
	}
	checks = checks.withDefaults()
	if onStage == nil {
		onStage = func(Stage) {}
	}

	unchecked, err := NewUncheckedProposal(body, rawQuery, header)
	if err != nil {
		return nil, err
	}
	onStage(unchecked.Stage())

	broadcastable, err := unchecked.CheckBroadcastSuitability(checks.MinFeeRate, checks.CanBroadcast)
	if err != nil {
		return nil, err
	}
	onStage(broadcastable.Stage())

	notOwned, err := broadcastable.CheckInputsNotOwned(checks.IsOwned)
	if err != nil {
		return nil, err
	}
	onStage(notOwned.Stage())

	uniform, err := notOwned.CheckNoMixedInputScripts()
	if err != nil {
		return nil, err
	}
	onStage(uniform.Stage())

	unseen, err := uniform.CheckNoInputsSeenBefore(checks.IsKnown)
	if err != nil {
		return nil, err
	}
	onStage(unseen.Stage())

	identified, err := unseen.IdentifyReceiverOutputs(checks.IsReceiverOutput)
	if err != nil {
		return nil, err
	}
	onStage(identified.Stage())

	return identified, nil
}

// Pipeline carries everything needed to turn a request into a proposal.
type Pipeline struct {
	Checks

	// Candidates lists receiver UTXOs; failures only skip contribution.
	Candidates func() ([]Candidate, error)
	Policy     InputSelectionPolicy

	// Substitute may return a replacement for the receiver output script.
	Substitute func(current []byte) (fn.Option[[]byte], error)

	// Remember persists the inputs of a validated original.
	Remember func([]wire.OutPoint) error

	Sign    SignProposal
	OnStage func(Stage)
	Logger  *zap.Logger
}

// Process validates the request, optionally substitutes the receiver output,
// contributes at most one input and finalizes. Every error is an *Error.
func (pl Pipeline) Process(body []byte, rawQuery string, header http.Header) (*PayjoinProposal, error) {
	logger := pl.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onStage := pl.OnStage
	if onStage == nil {
		onStage = func(Stage) {}
	}
	if pl.Sign == nil {
		return nil, unavailable(errors.New("signer is required"))
	}
	policy := pl.Policy
	if policy == nil {
		policy = UIHAvoidingPolicy{}
	}

	identified, err := Validate(body, rawQuery, header, pl.Checks, onStage)
	if err != nil {
		return nil, err
	}

	if pl.Remember != nil {
		if err := pl.Remember(identified.Inputs()); err != nil {
			return nil, unavailable(fmt.Errorf("remember inputs: %w", err))
		}
	}

	provisional, err := identified.Provisional()
	if err != nil {
		return nil, err
	}
	onStage(provisional.Stage())

	if pl.Substitute != nil {
		replacement, err := pl.Substitute(provisional.ReceiverScript())
		if err != nil {
			return nil, unavailable(fmt.Errorf("substitute output: %w", err))
		}
		replacement.WhenSome(func(script []byte) {
			if err := provisional.SubstituteOutputScript(script); err != nil {
				logger.Debug("output substitution skipped", zap.Error(err))
			}
		})
	}

	if pl.Candidates != nil {
		candidates, err := pl.Candidates()
		if err != nil {
			logger.Warn("list receiver candidates failed; not contributing", zap.Error(err))
		}
		selected := SelectInput(provisional, candidates, policy)
		if selected.IsNone() && len(candidates) > 0 {
			logger.Debug("no privacy preserving candidate", zap.Int("candidates", len(candidates)))
		}
		selected.WhenSome(func(c Candidate) {
			if err := provisional.ContributeWitnessInput(c.TxOut, c.OutPoint); err != nil {
				logger.Warn("contribute input failed; not contributing",
					zap.Stringer("outpoint", c.OutPoint), zap.Error(err))
			}
		})
	}

	finalized, err := provisional.FinalizeProposal(pl.Sign, pl.MinFeeRate)
	if err != nil {
		return nil, AsError(err)
	}
	onStage(finalized.Stage())
	return finalized, nil
}
