// Package core provides the business logic for the DSLD sync pipeline:
// combining extracted CSV members into one typed table and upserting it
// into the destination store in bounded batches.
package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Columns lists the destination column names in insert order. These are
// quoted Postgres identifiers and must match the dsld_supplements table
// exactly, embedded brackets and spaces included. The upstream CSV headers
// carry the same names; the builder verifies that at parse time.
var Columns = []string{
	"URL",
	"DSLD ID",
	"Product Name",
	"Brand Name",
	"Bar Code",
	"Net Contents",
	"Serving Size",
	"Product Type [LanguaL]",
	"Supplement Form [LanguaL]",
	"Date Entered into DSLD",
	"Market Status",
	"Suggested Use",
}

// ConflictColumn is the unique key the destination resolves upserts on.
const ConflictColumn = "DSLD ID"

// Product is one row of the unified dataset. Empty or missing cells are
// represented as invalid pgtype values, which pgx encodes as SQL NULL; this
// is the single uniform absence marker the destination receives.
type Product struct {
	URL            pgtype.Text
	DSLDID         pgtype.Text
	ProductName    pgtype.Text
	BrandName      pgtype.Text
	BarCode        pgtype.Text
	NetContents    pgtype.Text
	ServingSize    pgtype.Text
	ProductType    pgtype.Text
	SupplementForm pgtype.Text
	DateEntered    pgtype.Date
	MarketStatus   pgtype.Text
	SuggestedUse   pgtype.Text
}

// Values returns the row's fields in the same order as Columns.
func (p *Product) Values() []any {
	return []any{
		p.URL,
		p.DSLDID,
		p.ProductName,
		p.BrandName,
		p.BarCode,
		p.NetContents,
		p.ServingSize,
		p.ProductType,
		p.SupplementForm,
		p.DateEntered,
		p.MarketStatus,
		p.SuggestedUse,
	}
}

// Table is the unified in-memory dataset built from all matching members.
// It lives only for the duration of one run.
type Table struct {
	Rows []Product

	// SkippedRows counts source rows dropped because the conflict key
	// column was empty; such rows cannot be upserted.
	SkippedRows int
}

// Empty reports whether the table has no rows to sync.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// SyncResult reports how much of a table reached the destination.
// On failure it reflects the batches committed before the error.
type SyncResult struct {
	Batches int
	Rows    int
}

// BatchSender issues a set of queued statements in one round trip.
// Satisfied by *pgxpool.Pool; faked in tests.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
