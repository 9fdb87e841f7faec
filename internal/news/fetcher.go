package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// Fetcher агрегатор новостей из нескольких RSS-лент
type Fetcher struct {
	feeds  []string
	parser *gofeed.Parser
	logger *utils.Logger
}

// NewFetcher создает новый агрегатор новостей
func NewFetcher(feeds []string, logger *utils.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "trading-copilot/1.0"

	return &Fetcher{
		feeds:  feeds,
		parser: parser,
		logger: logger.WithPrefix("news"),
	}
}

// FetchNews собирает последние новости из всех лент: дедупликация по URL
// (fallback на заголовок), сортировка по времени публикации, обрезка до limit.
// Недоступная лента пропускается, ошибка возвращается только если недоступны все.
func (f *Fetcher) FetchNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	var items []domain.NewsItem
	var failed int

	for _, feedURL := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			f.logger.Warn("feed %s unavailable: %v", feedURL, err)
			failed++
			continue
		}

		for _, item := range feed.Items {
			published := time.Now()
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			}

			items = append(items, domain.NewsItem{
				Title:       strings.TrimSpace(item.Title),
				URL:         item.Link,
				Source:      feed.Title,
				PublishedAt: published,
			})
		}
	}

	if len(f.feeds) > 0 && failed == len(f.feeds) {
		return nil, fmt.Errorf("%w: all %d news feeds unavailable", domain.ErrExternalFetch, failed)
	}

	items = Dedupe(items)

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// Dedupe удаляет дубликаты новостей по URL, затем по нормализованному заголовку
func Dedupe(items []domain.NewsItem) []domain.NewsItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]

	for _, item := range items {
		key := item.URL
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(item.Title))
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}

	return out
}

// Headlines извлекает заголовки для классификатора сентимента
func Headlines(items []domain.NewsItem) []string {
	headlines := make([]string, 0, len(items))
	for _, item := range items {
		headlines = append(headlines, item.Title)
	}
	return headlines
}
