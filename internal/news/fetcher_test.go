package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
<item><title>Bitcoin surge continues</title><link>https://example.com/a</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Solana rally gains momentum</title><link>https://example.com/b</link><pubDate>Mon, 02 Jan 2006 16:04:05 GMT</pubDate></item>
<item><title>Bitcoin surge continues</title><link>https://example.com/a</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
</channel>
</rss>`

func TestFetchNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssTemplate, "Test Feed")
	}))
	defer server.Close()

	f := NewFetcher([]string{server.URL}, utils.NewLogger("error"))

	items, err := f.FetchNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}

	// Дубликат по URL должен быть удален
	if len(items) != 2 {
		t.Fatalf("FetchNews() returned %d items, want 2", len(items))
	}

	// Сортировка: свежие первыми
	if !items[0].PublishedAt.After(items[1].PublishedAt) {
		t.Errorf("items not sorted by recency: %v before %v", items[0].PublishedAt, items[1].PublishedAt)
	}
	if items[0].Title != "Solana rally gains momentum" {
		t.Errorf("first item = %q, want newest", items[0].Title)
	}
	if items[0].Source != "Test Feed" {
		t.Errorf("source = %q, want Test Feed", items[0].Source)
	}
}

func TestFetchNews_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, "Test Feed")
	}))
	defer server.Close()

	f := NewFetcher([]string{server.URL}, utils.NewLogger("error"))

	items, err := f.FetchNews(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("FetchNews() returned %d items, want 1", len(items))
	}
}

func TestFetchNews_PartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssTemplate, "Good Feed")
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher([]string{bad.URL, good.URL}, utils.NewLogger("error"))

	items, err := f.FetchNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchNews() with one live feed should not fail, got %v", err)
	}
	if len(items) == 0 {
		t.Error("FetchNews() returned no items from the live feed")
	}
}

func TestFetchNews_AllFeedsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher([]string{bad.URL, bad.URL + "/other"}, utils.NewLogger("error"))

	_, err := f.FetchNews(context.Background(), 10)
	if err == nil {
		t.Fatal("FetchNews() should fail when all feeds are unavailable")
	}
	if !errors.Is(err, domain.ErrExternalFetch) {
		t.Errorf("error = %v, want ErrExternalFetch", err)
	}
}

func TestDedupe(t *testing.T) {
	now := time.Now()
	items := []domain.NewsItem{
		{Title: "A", URL: "https://example.com/a", PublishedAt: now},
		{Title: "B", URL: "https://example.com/b", PublishedAt: now},
		{Title: "A again", URL: "https://example.com/a", PublishedAt: now},
		{Title: "No URL", URL: "", PublishedAt: now},
		{Title: "no url", URL: "", PublishedAt: now},
		{Title: "", URL: "", PublishedAt: now},
	}

	out := Dedupe(items)

	if len(out) != 3 {
		t.Fatalf("Dedupe() returned %d items, want 3", len(out))
	}
	if out[0].Title != "A" || out[1].Title != "B" || out[2].Title != "No URL" {
		t.Errorf("Dedupe() order broken: %+v", out)
	}
}

func TestHeadlines(t *testing.T) {
	items := []domain.NewsItem{
		{Title: "First"},
		{Title: "Second"},
	}

	headlines := Headlines(items)
	if len(headlines) != 2 || headlines[0] != "First" || headlines[1] != "Second" {
		t.Errorf("Headlines() = %v", headlines)
	}
}
