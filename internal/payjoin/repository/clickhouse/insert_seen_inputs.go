package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
)

const insertSeenInputsQuery = `
INSERT INTO payjoin_seen_inputs (
	network,
	txid,
	vout,
	created_at
) VALUES`

// InsertSeenInputs stores the inputs of validated originals.
func (r *Repository) InsertSeenInputs(ctx context.Context, inputs []model.SeenInput) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_seen_inputs", firstNetwork(inputs, func(in model.SeenInput) model.Network { return in.Network }), err, start)
	}()

	if len(inputs) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertSeenInputsQuery)
	if err != nil {
		return fmt.Errorf("prepare seen inputs batch: %w", err)
	}

	for _, in := range inputs {
		if err = batch.Append(
			string(in.Network),
			in.TxID,
			in.Vout,
			in.CreatedAt,
		); err != nil {
			return fmt.Errorf("append seen input: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert seen inputs: %w", err)
	}
	return nil
}

func firstNetwork[T any](items []T, network func(T) model.Network) model.Network {
	if len(items) == 0 {
		return ""
	}
	return network(items[0])
}
