// Package bitcoind adapts a Bitcoin Core node and its wallet to the payjoin
// services. Calls btcd does not model are sent as raw requests.
package bitcoind

import (
	"encoding/json"
	"fmt"
)

const (
	methodWalletCreateFundedPsbt = "walletcreatefundedpsbt"
	methodWalletProcessPsbt      = "walletprocesspsbt"
	methodGetAddressInfo         = "getaddressinfo"
)

type (
	fundedPsbtResult struct {
		Psbt      string  `json:"psbt"`
		Fee       float64 `json:"fee"`
		ChangePos int     `json:"changepos"`
	}
	processedPsbtResult struct {
		Psbt     string `json:"psbt"`
		Complete bool   `json:"complete"`
	}
	addressInfoResult struct {
		IsMine bool `json:"ismine"`
	}
)

// rawCall marshals every argument as one positional parameter and decodes
// the result into out.
func rawCall(rpc RPCClient, method string, out any, args ...any) error {
	params := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return fmt.Errorf("%s: marshal param %d: %w", method, i, err)
		}
		params = append(params, b)
	}

	res, err := rpc.RawRequest(method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
