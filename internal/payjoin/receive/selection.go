package receive

import (
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Candidate is a receiver UTXO that may be contributed.
type Candidate struct {
	OutPoint wire.OutPoint
	TxOut    *wire.TxOut
}

// InputSelectionPolicy proposes one outpoint out of value-keyed candidates.
type InputSelectionPolicy interface {
	SelectInput(p *ProvisionalProposal, candidates map[btcutil.Amount]wire.OutPoint) (wire.OutPoint, error)
}

// UIHAvoidingPolicy avoids the unnecessary input heuristic for two-output
// originals and falls back to the smallest candidate otherwise.
type UIHAvoidingPolicy struct{}

func (UIHAvoidingPolicy) SelectInput(p *ProvisionalProposal, candidates map[btcutil.Amount]wire.OutPoint) (wire.OutPoint, error) {
	values := sortedValues(candidates)
	if len(values) == 0 {
		return wire.OutPoint{}, ErrSelectionFailed
	}

	outs := p.OriginalOutputValues()
	if len(outs) != 2 {
		return candidates[values[0]], nil
	}

	minOut := slices.Min(outs)
	minIn := slices.Min(p.OriginalInputValues())
	prior := p.PaymentAmount()

	// The receiver output grows by the contribution; the heuristic is avoided
	// when some output stays smaller than every input.
	for _, value := range values {
		candidateMinOut := min(minOut, prior+value)
		candidateMinIn := min(minIn, value)
		if candidateMinOut < candidateMinIn {
			return candidates[value], nil
		}
	}
	return wire.OutPoint{}, ErrSelectionFailed
}

// FirstCandidatePolicy picks the smallest candidate unconditionally.
type FirstCandidatePolicy struct{}

func (FirstCandidatePolicy) SelectInput(_ *ProvisionalProposal, candidates map[btcutil.Amount]wire.OutPoint) (wire.OutPoint, error) {
	values := sortedValues(candidates)
	if len(values) == 0 {
		return wire.OutPoint{}, ErrSelectionFailed
	}
	return candidates[values[0]], nil
}

func sortedValues(candidates map[btcutil.Amount]wire.OutPoint) []btcutil.Amount {
	values := make([]btcutil.Amount, 0, len(candidates))
	for value := range candidates {
		values = append(values, value)
	}
	slices.Sort(values)
	return values
}

// SelectInput filters candidates to contributable witness outputs, keys them
// by value and delegates to policy. A failed or out-of-set selection yields
// None.
func SelectInput(p *ProvisionalProposal, candidates []Candidate, policy InputSelectionPolicy) fn.Option[Candidate] {
	byValue := make(map[btcutil.Amount]wire.OutPoint, len(candidates))
	byOutPoint := make(map[wire.OutPoint]Candidate, len(candidates))
	for _, c := range candidates {
		if c.TxOut == nil || c.TxOut.Value <= 0 || p.hasInput(c.OutPoint) {
			continue
		}
		if !psbtutil.IsWitnessScript(c.TxOut.PkScript) || psbtutil.ScriptClass(c.TxOut.PkScript) != p.inputClass {
			continue
		}
		value := btcutil.Amount(c.TxOut.Value)
		if _, dup := byValue[value]; dup {
			continue
		}
		byValue[value] = c.OutPoint
		byOutPoint[c.OutPoint] = c
	}

	selected, err := policy.SelectInput(p, byValue)
	if err != nil {
		return fn.None[Candidate]()
	}
	c, ok := byOutPoint[selected]
	if !ok {
		return fn.None[Candidate]()
	}
	return fn.Some(c)
}
