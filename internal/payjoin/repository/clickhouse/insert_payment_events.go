package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
)

const insertPaymentEventsQuery = `
INSERT INTO payjoin_payment_events (
	network,
	txid,
	kind,
	amount,
	counterparty,
	reason,
	created_at
) VALUES`

// InsertPaymentEvents appends payment outcomes to the history table.
func (r *Repository) InsertPaymentEvents(ctx context.Context, rows []model.PaymentEventRow) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_payment_events", firstNetwork(rows, func(row model.PaymentEventRow) model.Network { return row.Network }), err, start)
	}()

	if len(rows) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertPaymentEventsQuery)
	if err != nil {
		return fmt.Errorf("prepare payment events batch: %w", err)
	}

	for _, row := range rows {
		if err = batch.Append(
			string(row.Network),
			row.TxID,
			row.Kind,
			row.Amount,
			row.Counterparty,
			row.Reason,
			row.CreatedAt,
		); err != nil {
			return fmt.Errorf("append payment event: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert payment events: %w", err)
	}
	return nil
}
