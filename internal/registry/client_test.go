package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListDatasetsPassesSearchAndLimit(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/datasets" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"squad/v2","description":"qa"},{"id":"glue/cola"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())
	infos, err := client.ListDatasets(context.Background(), "squad", 0)
	if err != nil {
		t.Fatalf("ListDatasets returned error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 results, got %d", len(infos))
	}
	if infos[0].ID != "squad/v2" {
		t.Fatalf("unexpected first id %q", infos[0].ID)
	}
	if gotQuery != "limit=50&search=squad" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestGetDatasetDecodesCardData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/datasets/squad/v2" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"squad/v2","description":"qa","downloads":99,"cardData":{"size":1048576}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())
	info, err := client.GetDataset(context.Background(), "squad/v2")
	if err != nil {
		t.Fatalf("GetDataset returned error: %v", err)
	}
	if info.Size() == nil || *info.Size() != 1048576 {
		t.Fatalf("expected size 1048576, got %v", info.Size())
	}
	if info.Downloads == nil || *info.Downloads != 99 {
		t.Fatalf("expected 99 downloads, got %v", info.Downloads)
	}
	if info.Samples() != nil {
		t.Fatal("expected no sample count")
	}
}

func TestGetDatasetMissIsNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		client := NewClient(server.URL, time.Second, testLogger())
		_, err := client.GetDataset(context.Background(), "no/such")
		server.Close()
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("status %d: expected ErrNotFound, got %v", status, err)
		}
	}
}

func TestGetDatasetServerErrorIsNotAMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, testLogger())
	_, err := client.GetDataset(context.Background(), "squad/v2")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a non-NotFound error, got %v", err)
	}
}

func TestClientHonorsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	if _, err := client.GetDataset(ctx, "squad/v2"); err == nil {
		t.Fatal("expected cancellation error")
	}
}
