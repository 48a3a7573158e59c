package core

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/dsld-sync/internal/fetch"
)

type fakeFetcher struct {
	members []fetch.MemberFile
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]fetch.MemberFile, error) {
	return f.members, f.err
}

type fakeUpserter struct {
	tables []*Table
	err    error
}

func (f *fakeUpserter) Upsert(ctx context.Context, table *Table) (*SyncResult, error) {
	f.tables = append(f.tables, table)
	if f.err != nil {
		return &SyncResult{}, f.err
	}
	return &SyncResult{Batches: 1, Rows: len(table.Rows)}, nil
}

func TestRun_FetchErrorEndsGracefully(t *testing.T) {
	up := &fakeUpserter{}
	p := NewPipeline(&fakeFetcher{err: errors.New("connection refused")}, up, "http://example.invalid/db.zip", nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil (fetch failure is recoverable)", err)
	}
	if len(up.tables) != 0 {
		t.Errorf("Upsert called %d times, want 0", len(up.tables))
	}
}

func TestRun_NoMatchesSkipsLaterStages(t *testing.T) {
	up := &fakeUpserter{}
	p := NewPipeline(&fakeFetcher{}, up, "http://example.invalid/db.zip", nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if len(up.tables) != 0 {
		t.Errorf("Upsert called %d times, want 0", len(up.tables))
	}
}

func TestRun_HappyPath(t *testing.T) {
	f := member("ProductOverview.csv",
		testHeader,
		`,A1,One,,,,,,,,,`,
		`,A2,Two,,,,,,,,,`,
	)
	up := &fakeUpserter{}
	p := NewPipeline(&fakeFetcher{members: []fetch.MemberFile{f}}, up, "http://example.invalid/db.zip", nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(up.tables) != 1 {
		t.Fatalf("Upsert called %d times, want 1", len(up.tables))
	}
	if len(up.tables[0].Rows) != 2 {
		t.Errorf("upserted table has %d rows, want 2", len(up.tables[0].Rows))
	}
}

func TestRun_CombineErrorIsFatal(t *testing.T) {
	f := member("ProductOverview.csv", "URL,DSLD ID", ",A1")
	up := &fakeUpserter{}
	p := NewPipeline(&fakeFetcher{members: []fetch.MemberFile{f}}, up, "http://example.invalid/db.zip", nil)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error for malformed extract, got nil")
	}
	if len(up.tables) != 0 {
		t.Errorf("Upsert called %d times, want 0", len(up.tables))
	}
}

func TestRun_UploadErrorIsFatal(t *testing.T) {
	f := member("ProductOverview.csv", testHeader, `,A1,One,,,,,,,,,`)
	up := &fakeUpserter{err: errors.New("permission denied for table dsld_supplements")}
	p := NewPipeline(&fakeFetcher{members: []fetch.MemberFile{f}}, up, "http://example.invalid/db.zip", nil)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for upload failure, got nil")
	}
}

// TestRun_EndToEnd exercises the real fetcher against an in-process archive
// server: only the matching member's rows reach the writer.
func TestRun_EndToEnd(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, _ := zw.Create("ProductOverview.csv")
	w.Write([]byte(testHeader + "\n,A1,One,,,,,,,,,\n,A2,Two,,,,,,,,,\n,A3,Three,,,,,,,,,\n"))

	w, _ = zw.Create("Ingredients.csv")
	w.Write([]byte("DSLD ID,Ingredient\nX1,a\nX2,b\nX3,c\nX4,d\nX5,e\n"))

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write(buf.Bytes())
	}))
	defer srv.Close()

	up := &fakeUpserter{}
	p := NewPipeline(fetch.NewClient("ProductOverview", 10*time.Second), up, srv.URL, nil)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(up.tables) != 1 {
		t.Fatalf("Upsert called %d times, want 1", len(up.tables))
	}

	rows := up.tables[0].Rows
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for _, r := range rows {
		if r.DSLDID.String == "X1" || r.DSLDID.String == "X5" {
			t.Errorf("row from non-matching member leaked into the table: %q", r.DSLDID.String)
		}
	}
}
