package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
)

const seenInputsQuery = `
SELECT
	txid,
	vout,
	min(created_at) AS created_at
FROM payjoin_seen_inputs
WHERE network = ? AND txid IN ?
GROUP BY
	txid,
	vout`

// SeenInputs returns the subset of inputs that were stored before.
func (r *Repository) SeenInputs(ctx context.Context, network model.Network, inputs []model.SeenInput) (_ []model.SeenInput, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("seen_inputs", network, err, start)
	}()

	if len(inputs) == 0 {
		return nil, nil
	}

	wanted := make(map[string]map[uint32]bool, len(inputs))
	txids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if wanted[in.TxID] == nil {
			wanted[in.TxID] = make(map[uint32]bool)
			txids = append(txids, in.TxID)
		}
		wanted[in.TxID][in.Vout] = true
	}

	rows, err := r.conn.Query(ctx, seenInputsQuery, string(network), txids)
	if err != nil {
		return nil, fmt.Errorf("query seen inputs: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var found []model.SeenInput
	for rows.Next() {
		in := model.SeenInput{Network: network}
		if err = rows.Scan(&in.TxID, &in.Vout, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan seen input: %w", err)
		}
		if wanted[in.TxID][in.Vout] {
			found = append(found, in)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen inputs: %w", err)
	}

	return found, nil
}
