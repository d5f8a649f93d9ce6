package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
)

const paymentEventsByTxIDQuery = `
SELECT
	kind,
	amount,
	counterparty,
	reason,
	created_at
FROM payjoin_payment_events
WHERE network = ? AND txid = ?
ORDER BY created_at ASC`

// PaymentEventsByTxID returns the recorded history of one payment, oldest first.
func (r *Repository) PaymentEventsByTxID(ctx context.Context, network model.Network, txid string) (_ []model.PaymentEventRow, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("payment_events_by_txid", network, err, start)
	}()

	rows, err := r.conn.Query(ctx, paymentEventsByTxIDQuery, string(network), txid)
	if err != nil {
		return nil, fmt.Errorf("query payment events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var events []model.PaymentEventRow
	for rows.Next() {
		row := model.PaymentEventRow{Network: network, TxID: txid}
		if err = rows.Scan(&row.Kind, &row.Amount, &row.Counterparty, &row.Reason, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		events = append(events, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment events: %w", err)
	}

	return events, nil
}
