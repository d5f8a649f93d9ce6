package receive

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/psbtutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var supportedVersions = []int{1, 2}

// Params are the sender's optional parameters from the request query.
type Params struct {
	Version                      int
	DisableOutputSubstitution    bool
	AdditionalFeeOutputIndex     fn.Option[int]
	MaxAdditionalFeeContribution btcutil.Amount
	// MinFeeRate is in sat/kvB.
	MinFeeRate btcutil.Amount
}

// ParseParams reads v, additionalfeeoutputindex, maxadditionalfeecontribution,
// minfeerate and disableoutputsubstitution.
func ParseParams(rawQuery string) (Params, error) {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Params{}, rejected(fmt.Errorf("parse query: %w", err))
	}

	params := Params{Version: 1, AdditionalFeeOutputIndex: fn.None[int]()}

	if v := query.Get("v"); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil || !slices.Contains(supportedVersions, version) {
			return Params{}, &Error{Code: CodeVersionUnsupported, cause: fmt.Errorf("version %q", v)}
		}
		params.Version = version
	}

	if v := query.Get("disableoutputsubstitution"); v != "" {
		disable, err := strconv.ParseBool(v)
		if err != nil {
			return Params{}, rejected(fmt.Errorf("disableoutputsubstitution %q: %w", v, err))
		}
		params.DisableOutputSubstitution = disable
	}

	idx, contrib := query.Get("additionalfeeoutputindex"), query.Get("maxadditionalfeecontribution")
	if idx != "" && contrib != "" {
		index, err := strconv.Atoi(idx)
		if err != nil || index < 0 {
			return Params{}, rejected(fmt.Errorf("additionalfeeoutputindex %q", idx))
		}
		contribution, err := strconv.ParseInt(contrib, 10, 64)
		if err != nil || contribution < 0 {
			return Params{}, rejected(fmt.Errorf("maxadditionalfeecontribution %q", contrib))
		}
		params.AdditionalFeeOutputIndex = fn.Some(index)
		params.MaxAdditionalFeeContribution = btcutil.Amount(contribution)
	}

	if v := query.Get("minfeerate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 {
			return Params{}, rejected(fmt.Errorf("minfeerate %q", v))
		}
		params.MinFeeRate = psbtutil.SatPerVByte(rate)
	}

	return params, nil
}

// Encode renders the params as a request query.
func (p Params) Encode() string {
	query := url.Values{}
	query.Set("v", strconv.Itoa(p.Version))
	if p.DisableOutputSubstitution {
		query.Set("disableoutputsubstitution", "true")
	}
	p.AdditionalFeeOutputIndex.WhenSome(func(index int) {
		query.Set("additionalfeeoutputindex", strconv.Itoa(index))
		query.Set("maxadditionalfeecontribution", strconv.FormatInt(int64(p.MaxAdditionalFeeContribution), 10))
	})
	if p.MinFeeRate > 0 {
		query.Set("minfeerate", strconv.FormatFloat(float64(p.MinFeeRate)/1000, 'f', -1, 64))
	}
	return query.Encode()
}
