package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

// Mock implementations for testing

type mockCatalog struct {
	items       []Item
	err         error
	linkCalls   []string
	searchCalls []string
	searchTypes []EntityType
}

func (m *mockCatalog) ItemsByLink(_ context.Context, raw string) ([]Item, error) {
	m.linkCalls = append(m.linkCalls, raw)
	if raw == "not a link" || raw == "numb linkin park" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
	}
	return m.items, m.err
}

func (m *mockCatalog) ItemsBySearch(_ context.Context, query string, contentType EntityType) ([]Item, error) {
	m.searchCalls = append(m.searchCalls, query)
	m.searchTypes = append(m.searchTypes, contentType)
	return m.items, m.err
}

type mockFetcher struct {
	targets []string
	fail    map[string]error
	cancel  context.CancelFunc
}

func (m *mockFetcher) Fetch(_ context.Context, item Item, target string) (string, error) {
	m.targets = append(m.targets, target)
	if m.cancel != nil {
		m.cancel()
	}
	if err := m.fail[item.ID]; err != nil {
		return "", err
	}
	return target + ".m4a", nil
}

type mockDedup struct {
	ids map[string]bool
}

func newMockDedup(ids ...string) *mockDedup {
	d := &mockDedup{ids: map[string]bool{}}
	for _, id := range ids {
		d.ids[id] = true
	}
	return d
}

func (m *mockDedup) Has(id string) bool { return m.ids[id] }
func (m *mockDedup) Add(id string)      { m.ids[id] = true }
func (m *mockDedup) Size() int          { return len(m.ids) }

type mockRecorder struct {
	NopRecorder
	downloads map[string]int
}

func (m *mockRecorder) RecordDownload(status string) {
	m.downloads[status]++
}

type result struct {
	id     string
	path   string
	status string
	err    error
}

func sampleItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID:      fmt.Sprintf("id%d", i+1),
			Type:    ItemTrack,
			Title:   fmt.Sprintf("Song %d", i+1),
			Authors: []string{"Band"},
			Album:   "Record",
		}
	}
	AssignIndexes(items)
	return items
}

func newTestOrchestrator(t *testing.T, config *Config, catalog Catalog, media MediaFetcher, dedup DedupStore, metrics MetricsRecorder) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(config, catalog, media, dedup, metrics, zap.NewNop())
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return o
}

func TestOrchestrator_Validate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		expected error
	}{
		{"defaults", func(*Config) {}, nil},
		{"format help", func(c *Config) { c.Download.Format = FormatHelp }, nil},
		{"unknown field", func(c *Config) { c.Download.Format = "{title} {bpm}" }, ErrUnknownField},
		{"malformed template", func(c *Config) { c.Download.Format = "{title" }, ErrMalformedTemplate},
		{"bad slice", func(c *Config) { c.App.Slice = "x:y" }, ErrInvalidSlice},
		{"bad search type", func(c *Config) { c.App.SearchType = EntitySaved }, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			catalog := &mockCatalog{}

			err := NewOrchestrator(config, catalog, &mockFetcher{}, newMockDedup(), nil, zap.NewNop()).Validate()
			if tt.expected == nil && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if tt.expected != nil && !errors.Is(err, tt.expected) {
				t.Errorf("Validate() error = %v, want %v", err, tt.expected)
			}
			if len(catalog.linkCalls)+len(catalog.searchCalls) != 0 {
				t.Error("Validate() must not touch the catalog")
			}
		})
	}
}

func TestOrchestrator_ResolveLink(t *testing.T) {
	catalog := &mockCatalog{items: sampleItems(3)}
	o := newTestOrchestrator(t, DefaultConfig(), catalog, &mockFetcher{}, newMockDedup(), nil)

	items, err := o.Resolve(context.Background(), "spotify:album:abc")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("Resolve() returned %d items, want 3", len(items))
	}
	if len(catalog.searchCalls) != 0 {
		t.Errorf("link input should not search, got %v", catalog.searchCalls)
	}
}

func TestOrchestrator_ResolveFallsBackToSearch(t *testing.T) {
	config := DefaultConfig()
	config.App.SearchType = EntityPlaylist
	catalog := &mockCatalog{items: sampleItems(2)}
	o := newTestOrchestrator(t, config, catalog, &mockFetcher{}, newMockDedup(), nil)

	items, err := o.Resolve(context.Background(), "numb linkin park")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Resolve() returned %d items", len(items))
	}
	if len(catalog.searchCalls) != 1 || catalog.searchCalls[0] != "numb linkin park" {
		t.Errorf("searchCalls = %v", catalog.searchCalls)
	}
	if catalog.searchTypes[0] != EntityPlaylist {
		t.Errorf("search type = %s, want playlist", catalog.searchTypes[0])
	}
}

func TestOrchestrator_ResolveAppliesSlice(t *testing.T) {
	config := DefaultConfig()
	config.App.Slice = "2:3"
	o := newTestOrchestrator(t, config, &mockCatalog{items: sampleItems(5)}, &mockFetcher{}, newMockDedup(), nil)

	items, err := o.Resolve(context.Background(), "spotify:playlist:p")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(items) != 2 || items[0].Index != 2 || items[1].Index != 3 {
		t.Errorf("Resolve() = %+v, want items 2 and 3 with their original indexes", items)
	}
}

func TestOrchestrator_ResolveEmpty(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		slice string
	}{
		{"no match", []Item{}, ":"},
		{"slice past the end", sampleItems(3), "5:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.App.Slice = tt.slice
			o := newTestOrchestrator(t, cfg, &mockCatalog{items: tt.items}, &mockFetcher{}, newMockDedup(), nil)

			items, err := o.Resolve(context.Background(), "not a link")
			if !errors.Is(err, ErrNoResults) {
				t.Fatalf("Resolve() error = %v, want ErrNoResults", err)
			}
			if items != nil {
				t.Errorf("Resolve() = %#v, want nil alongside the error", items)
			}
		})
	}
}

func TestOrchestrator_ResolveError(t *testing.T) {
	reqErr := &RequestError{Path: "/albums/x", Status: 404, Message: "non existing id"}
	o := newTestOrchestrator(t, DefaultConfig(), &mockCatalog{err: reqErr}, &mockFetcher{}, newMockDedup(), nil)

	items, err := o.Resolve(context.Background(), "spotify:album:x")
	if items != nil {
		t.Errorf("Resolve() returned items %v alongside an error", items)
	}
	var got *RequestError
	if !errors.As(err, &got) || got.Status != 404 {
		t.Errorf("Resolve() error = %v, want the request error", err)
	}
}

func TestOrchestrator_Download(t *testing.T) {
	config := DefaultConfig()
	config.Download.OutputDir = "music"
	fetcher := &mockFetcher{fail: map[string]error{"id2": errors.New("no matching candidates")}}
	dedup := newMockDedup("id3")
	metrics := &mockRecorder{downloads: map[string]int{}}

	o := newTestOrchestrator(t, config, &mockCatalog{}, fetcher, dedup, metrics)

	var results []result
	o.SetResultHandler(func(item Item, path, status string, err error) {
		results = append(results, result{item.ID, path, status, err})
	})

	summary, err := o.Download(context.Background(), sampleItems(4))
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	if summary != (Summary{Downloaded: 2, Failed: 1, Skipped: 1}) {
		t.Errorf("Download() summary = %+v", summary)
	}

	expectedTargets := []string{
		filepath.Join("music", "Song 1 - Band (Record)"),
		filepath.Join("music", "Song 2 - Band (Record)"),
		filepath.Join("music", "Song 4 - Band (Record)"),
	}
	if fmt.Sprint(fetcher.targets) != fmt.Sprint(expectedTargets) {
		t.Errorf("targets = %v, want %v", fetcher.targets, expectedTargets)
	}

	expectedStatuses := []string{DownloadStatusOK, DownloadStatusFailed, DownloadStatusDuplicate, DownloadStatusOK}
	if len(results) != len(expectedStatuses) {
		t.Fatalf("got %d results, want %d", len(results), len(expectedStatuses))
	}
	for n, r := range results {
		if r.status != expectedStatuses[n] {
			t.Errorf("result %d status = %s, want %s", n, r.status, expectedStatuses[n])
		}
	}
	if results[0].path != expectedTargets[0]+".m4a" {
		t.Errorf("result path = %q", results[0].path)
	}
	if results[1].err == nil || results[1].path != "" {
		t.Errorf("failed result = %+v", results[1])
	}

	if !dedup.Has("id1") || !dedup.Has("id4") || dedup.Has("id2") {
		t.Errorf("dedup ids = %v", dedup.ids)
	}
	if metrics.downloads[DownloadStatusOK] != 2 || metrics.downloads[DownloadStatusFailed] != 1 ||
		metrics.downloads[DownloadStatusDuplicate] != 1 {
		t.Errorf("metrics = %v", metrics.downloads)
	}
}

func TestOrchestrator_DownloadSkipsRepeatsWithinRun(t *testing.T) {
	items := sampleItems(2)
	items = append(items, items[0])
	AssignIndexes(items)
	fetcher := &mockFetcher{}

	o := newTestOrchestrator(t, DefaultConfig(), &mockCatalog{}, fetcher, newMockDedup(), nil)

	summary, err := o.Download(context.Background(), items)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if summary.Downloaded != 2 || summary.Skipped != 1 || len(fetcher.targets) != 2 {
		t.Errorf("summary = %+v, fetches = %d", summary, len(fetcher.targets))
	}
}

func TestOrchestrator_DownloadEmptyName(t *testing.T) {
	config := DefaultConfig()
	config.Download.Format = "{cover}"
	fetcher := &mockFetcher{}
	o := newTestOrchestrator(t, config, &mockCatalog{}, fetcher, newMockDedup(), nil)

	if _, err := o.Download(context.Background(), sampleItems(1)); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(fetcher.targets) != 1 || fetcher.targets[0] != filepath.Join(".", "id1") {
		t.Errorf("targets = %v, want the id as file name", fetcher.targets)
	}
}

func TestOrchestrator_DownloadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &mockFetcher{cancel: cancel}

	o := newTestOrchestrator(t, DefaultConfig(), &mockCatalog{}, fetcher, newMockDedup(), nil)

	summary, err := o.Download(ctx, sampleItems(3))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Download() error = %v, want context.Canceled", err)
	}
	if len(fetcher.targets) != 1 {
		t.Errorf("fetched %d items after cancel, want 1", len(fetcher.targets))
	}
	if summary.Downloaded != 1 {
		t.Errorf("summary = %+v", summary)
	}
}
