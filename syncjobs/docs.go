// Package syncjobs refreshes cached reference data from external HTTP
// sources: the documentation index and the GitHub contributor roster.
package syncjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"coolbot/models"
	"coolbot/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const userAgent = "coolbot"

// DocsStore holds the cached documentation index.
type DocsStore interface {
	DocsETag(ctx context.Context) (string, error)
	ReplaceDocs(ctx context.Context, entries []models.DocEntry, etag string) error
}

// DocsSyncer pulls the documentation index with a conditional GET.
type DocsSyncer struct {
	client *http.Client
	url    string
	store  DocsStore
	runs   metric.Int64Counter
}

// NewDocsSyncer creates a syncer for the index at url.
func NewDocsSyncer(client *http.Client, url string, store DocsStore) *DocsSyncer {
	if client == nil {
		client = http.DefaultClient
	}
	return &DocsSyncer{
		client: client,
		url:    url,
		store:  store,
		runs:   telemetry.Counter("coolbot/sync", "sync.runs", "External sync runs"),
	}
}

// Sync fetches the index. A 304 leaves the cache untouched; a 200 replaces
// it wholesale together with the new ETag. Failures are reported in the
// status, never returned.
func (d *DocsSyncer) Sync(ctx context.Context) (bool, models.DocsSyncStatus) {
	ctx, span := telemetry.Tracer("coolbot/sync").Start(ctx, "sync.docs",
		trace.WithAttributes(attribute.String("url", d.url)))
	defer span.End()

	updated, status := d.sync(ctx)
	outcome := "unchanged"
	switch {
	case status.Error != "":
		outcome = "error"
		span.SetStatus(codes.Error, status.Error)
	case updated:
		outcome = "updated"
	}
	span.SetAttributes(attribute.Int("http.status", status.ResponseStatus), attribute.Int("docs.count", status.DocsCount))
	d.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("job", "docs"), attribute.String("outcome", outcome)))
	return updated, status
}

func (d *DocsSyncer) sync(ctx context.Context) (bool, models.DocsSyncStatus) {
	status := models.DocsSyncStatus{URL: d.url}

	current, err := d.store.DocsETag(ctx)
	if err != nil {
		status.Error = err.Error()
		return false, status
	}
	status.CurrentETag = current

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		status.Error = err.Error()
		return false, status
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if current != "" {
		req.Header.Set("If-None-Match", current)
		status.UsedETagHeader = true
	}

	resp, err := d.client.Do(req)
	if err != nil {
		status.Error = err.Error()
		return false, status
	}
	defer resp.Body.Close()

	status.ResponseStatus = resp.StatusCode
	status.ResponseETag = resp.Header.Get("ETag")

	switch resp.StatusCode {
	case http.StatusNotModified:
		return false, status
	case http.StatusOK:
	default:
		status.Error = fmt.Sprintf("unexpected status %s", resp.Status)
		return false, status
	}

	var entries []models.DocEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		status.Error = fmt.Sprintf("decode docs: %v", err)
		return false, status
	}
	entries = cleanEntries(entries)
	if err := d.store.ReplaceDocs(ctx, entries, status.ResponseETag); err != nil {
		status.Error = err.Error()
		return false, status
	}
	status.DocsCount = len(entries)
	return true, status
}

// cleanEntries drops unnamed entries and keeps the last link for a name.
func cleanEntries(entries []models.DocEntry) []models.DocEntry {
	index := make(map[string]int, len(entries))
	out := make([]models.DocEntry, 0, len(entries))
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Link = strings.TrimSpace(e.Link)
		if e.Name == "" || e.Link == "" {
			continue
		}
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}
