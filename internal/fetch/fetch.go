// Package fetch retrieves the DSLD database archive and extracts the
// CSV members relevant to product synchronization.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// MemberFile is one extracted archive member, fully decompressed in memory.
// The archive itself is transient; only the selected members survive the fetch.
type MemberFile struct {
	Name string
	Data []byte
}

// Client downloads zip archives and extracts members matching a name marker.
type Client struct {
	httpClient *http.Client
	marker     string
}

// NewClient returns a Client that selects members whose name contains marker
// and carries a .csv extension. The timeout bounds the whole transfer.
func NewClient(marker string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		marker:     marker,
	}
}

// Fetch downloads the archive at url and returns every matching member in
// archive listing order. A valid archive with no matching members yields an
// empty slice and no error; transfer and container failures are returned as
// errors for the caller to classify.
func (c *Client) Fetch(ctx context.Context, url string) ([]MemberFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download archive: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive body: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var members []MemberFile
	for _, f := range zr.File {
		if !c.matches(f.Name) {
			continue
		}

		data, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		members = append(members, MemberFile{Name: f.Name, Data: data})
	}

	return members, nil
}

// matches reports whether a member name contains the configured marker and
// has a CSV extension.
func (c *Client) matches(name string) bool {
	if !strings.Contains(name, c.marker) {
		return false
	}
	return strings.EqualFold(path.Ext(name), ".csv")
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
