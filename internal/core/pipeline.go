package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/dsld-sync/internal/fetch"
)

// Fetcher retrieves matching members from the remote archive.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]fetch.MemberFile, error)
}

// Upserter writes a unified table to the destination.
type Upserter interface {
	Upsert(ctx context.Context, table *Table) (*SyncResult, error)
}

// Pipeline sequences one full sync run: fetch, combine, upsert. There is no
// state beyond the run itself; every run re-downloads and re-processes the
// full archive.
type Pipeline struct {
	fetcher Fetcher
	writer  Upserter
	url     string
	logger  *slog.Logger
}

// NewPipeline wires the three stages together.
func NewPipeline(fetcher Fetcher, writer Upserter, url string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher: fetcher,
		writer:  writer,
		url:     url,
		logger:  logger,
	}
}

// Run executes one sync run. Transfer and archive failures end the run
// gracefully as "no data"; builder and upload failures are returned and
// terminate the run abnormally. Batches committed before an upload failure
// stay committed.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	p.logger.Info("downloading archive", "url", p.url)
	members, err := p.fetcher.Fetch(ctx, p.url)
	if err != nil {
		p.logger.Warn("archive fetch failed, treating as no data", "error", err)
		return nil
	}
	if len(members) == 0 {
		p.logger.Info("no matching files found in archive")
		return nil
	}

	for _, m := range members {
		p.logger.Info("found matching file", "name", m.Name)
	}

	table, err := Combine(members)
	if err != nil {
		return fmt.Errorf("combine extracts: %w", err)
	}

	p.logger.Info("combined extracts",
		"files", len(members),
		"rows", len(table.Rows),
		"skipped_rows", table.SkippedRows,
	)

	res, err := p.writer.Upsert(ctx, table)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	p.logger.Info("sync complete",
		"rows", res.Rows,
		"batches", res.Batches,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
