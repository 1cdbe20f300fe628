// Package io loads documents from a local directory of blog-post exports.
package io

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"gopkg.in/yaml.v3"

	"github.com/loom-graph/loom/pkg/common"
	"github.com/loom-graph/loom/pkg/logger"
)

// DirSource reads .md, .txt, .html and .json files under a directory.
// JSON files are treated as post exports holding one or more documents;
// the other formats yield one document per file.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over the given directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

type frontMatter struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

type exportPost struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// Load walks the directory and collects documents. Unreadable or
// unsupported files are skipped with a warning, not failed on; a corpus
// with one broken file should still build.
func (s *DirSource) Load(ctx context.Context) ([]common.Document, error) {
	var docs []common.Document

	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			doc, err := s.loadText(path)
			if err != nil {
				logger.Warn("skipping file", "path", path, "err", err)
				return nil
			}
			docs = append(docs, doc)
		case ".html", ".htm":
			doc, err := s.loadHTML(path)
			if err != nil {
				logger.Warn("skipping file", "path", path, "err", err)
				return nil
			}
			docs = append(docs, doc)
		case ".json":
			posts, err := s.loadExport(path)
			if err != nil {
				logger.Warn("skipping export", "path", path, "err", err)
				return nil
			}
			docs = append(docs, posts...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.dir, err)
	}

	return docs, nil
}

func (s *DirSource) loadText(path string) (common.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return common.Document{}, err
	}

	content := string(raw)
	var fm frontMatter
	content = stripFrontMatter(content, &fm)

	title := fm.Title
	if title == "" {
		title = firstHeading(content)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	date := fm.Date
	if date == "" {
		if info, err := os.Stat(path); err == nil {
			date = info.ModTime().UTC().Format("2006-01-02")
		}
	}

	return common.Document{
		Title:   title,
		Date:    date,
		Content: strings.TrimSpace(content),
	}, nil
}

func (s *DirSource) loadHTML(path string) (common.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.Document{}, err
	}
	defer f.Close()

	u := &url.URL{Scheme: "file", Path: path}
	article, err := readability.FromReader(f, u)
	if err != nil {
		return common.Document{}, fmt.Errorf("parsing html: %w", err)
	}

	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return common.Document{}, fmt.Errorf("rendering article text: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	date := ""
	if info, err := os.Stat(path); err == nil {
		date = info.ModTime().UTC().Format("2006-01-02")
	}

	return common.Document{
		Title:   title,
		Date:    date,
		Content: strings.TrimSpace(text.String()),
	}, nil
}

func (s *DirSource) loadExport(path string) ([]common.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var posts []exportPost
	if err := json.Unmarshal(raw, &posts); err != nil {
		var wrapper struct {
			Posts []exportPost `json:"posts"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("unrecognized export format: %w", err)
		}
		posts = wrapper.Posts
	}

	docs := make([]common.Document, 0, len(posts))
	for _, p := range posts {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		docs = append(docs, common.Document{
			ID:      p.ID,
			Title:   p.Title,
			Date:    p.Date,
			Content: strings.TrimSpace(p.Content),
		})
	}
	return docs, nil
}

// stripFrontMatter removes a leading YAML front-matter block, decoding it
// into fm. Content without front matter is returned unchanged.
func stripFrontMatter(content string, fm *frontMatter) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return content
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), fm); err != nil {
		return content
	}
	body := rest[end+len("\n---"):]
	return strings.TrimPrefix(body, "\n")
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
