// Package web loads documents by fetching URLs and extracting readable
// article text.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
)

// URLSource fetches a fixed list of post URLs. Fetched content is cached
// per URL, and concurrent fetches of the same URL are collapsed.
type URLSource struct {
	urls   []string
	client *http.Client

	cache   map[string]common.Document
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewURLSource creates a source over the given URLs. A nil client falls
// back to http.DefaultClient.
func NewURLSource(urls []string, client *http.Client) *URLSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &URLSource{
		urls:   urls,
		client: client,
		cache:  make(map[string]common.Document),
	}
}

// Load fetches every URL in order. A URL that cannot be fetched or parsed
// is skipped with a warning so the rest of the corpus still loads.
func (s *URLSource) Load(ctx context.Context) ([]common.Document, error) {
	docs := make([]common.Document, 0, len(s.urls))
	for _, u := range s.urls {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		doc, err := s.fetch(ctx, u)
		if err != nil {
			logger.Warn("skipping url", "url", u, "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *URLSource) fetch(ctx context.Context, rawURL string) (common.Document, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[rawURL]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(rawURL, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(contentType, "text/html") {
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			doc := common.Document{
				Title:   rawURL,
				Content: strings.TrimSpace(string(body)),
			}
			s.store(rawURL, doc)
			return doc, nil
		}

		parsed, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse url: %w", err)
		}
		article, err := readability.FromReader(resp.Body, parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse html: %w", err)
		}

		var text strings.Builder
		if err := article.RenderText(&text); err != nil {
			return nil, fmt.Errorf("failed to render article text: %w", err)
		}

		doc := common.Document{
			Title:   titleFromURL(parsed),
			Content: strings.TrimSpace(text.String()),
		}
		s.store(rawURL, doc)
		return doc, nil
	})
	if err != nil {
		return common.Document{}, err
	}
	return result.(common.Document), nil
}

// titleFromURL turns the last path segment into a readable title; blog
// URLs almost always carry the post slug there.
func titleFromURL(u *url.URL) string {
	slug := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(slug, "/"); i != -1 {
		slug = slug[i+1:]
	}
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.ReplaceAll(slug, "-", " ")
	slug = strings.ReplaceAll(slug, "_", " ")
	if slug == "" {
		return u.Host
	}
	return slug
}

func (s *URLSource) store(rawURL string, doc common.Document) {
	s.cacheMu.Lock()
	s.cache[rawURL] = doc
	s.cacheMu.Unlock()
}
