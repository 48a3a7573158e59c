package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Writer upserts a unified table into the destination in ordered batches.
// A failed batch aborts the remaining ones; batches already committed stay
// committed. There is no retry and no rollback across batches.
type Writer struct {
	db        BatchSender
	batchSize int
	delay     time.Duration
	logger    *slog.Logger
	upsertSQL string
}

// NewWriter builds a Writer for the given destination table. The table name
// must already be validated as a plain identifier (config does this).
func NewWriter(db BatchSender, table string, batchSize int, delay time.Duration, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		db:        db,
		batchSize: batchSize,
		delay:     delay,
		logger:    logger,
		upsertSQL: buildUpsertSQL(table),
	}
}

// buildUpsertSQL renders the per-row upsert statement. Column identifiers
// are quoted because the DSLD schema uses names with spaces and brackets.
func buildUpsertSQL(table string) string {
	var b strings.Builder

	b.WriteString(`INSERT INTO "` + table + `" (`)
	for i, col := range Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + col + `"`)
	}
	b.WriteString(") VALUES (")
	for i := range Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(`) ON CONFLICT ("` + ConflictColumn + `") DO UPDATE SET `)

	first := true
	for _, col := range Columns {
		if col == ConflictColumn {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(`"` + col + `" = EXCLUDED."` + col + `"`)
	}

	return b.String()
}

// Upsert writes every row of the table to the destination in contiguous
// batches, strictly in order, pausing between batches to bound request rate.
// On error the returned SyncResult still reflects the batches that committed
// before the failure.
func (w *Writer) Upsert(ctx context.Context, table *Table) (*SyncResult, error) {
	res := &SyncResult{}

	if table.Empty() {
		w.logger.Info("table is empty, nothing to upload")
		return res, nil
	}

	rows := table.Rows
	totalBatches := (len(rows) + w.batchSize - 1) / w.batchSize

	for start := 0; start < len(rows); start += w.batchSize {
		if start > 0 && w.delay > 0 {
			time.Sleep(w.delay)
		}

		end := min(start+w.batchSize, len(rows))
		chunk := rows[start:end]
		batchNum := start/w.batchSize + 1

		w.logger.Info("uploading batch",
			"batch", batchNum,
			"total_batches", totalBatches,
			"rows", len(chunk),
		)

		if err := w.sendChunk(ctx, chunk); err != nil {
			return res, fmt.Errorf("upsert batch %d of %d: %w", batchNum, totalBatches, err)
		}

		res.Batches++
		res.Rows += len(chunk)
	}

	w.logger.Info("all batches uploaded", "batches", res.Batches, "rows", res.Rows)
	return res, nil
}

// sendChunk queues one upsert per row and sends them in a single round trip.
func (w *Writer) sendChunk(ctx context.Context, chunk []Product) error {
	b := &pgx.Batch{}
	for i := range chunk {
		b.Queue(w.upsertSQL, chunk[i].Values()...)
	}

	br := w.db.SendBatch(ctx, b)
	for range chunk {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}
