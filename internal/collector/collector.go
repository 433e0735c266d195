// Package collector gathers the reviewable files of an unpacked repository.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"projectreview/internal/models"
	"projectreview/internal/notebook"
	"projectreview/internal/redact"
)

var (
	skipDirs  = map[string]bool{"__MACOSX": true, ".git": true, ".ipynb_checkpoints": true}
	skipFiles = map[string]bool{".DS_Store": true, "Thumbs.db": true}
)

// Summarizer describes a single file in the context of the project.
type Summarizer interface {
	SummarizeFile(ctx context.Context, path, content, description string) (string, error)
}

type Options struct {
	Extensions    []string
	MaxFileBytes  int64
	RedactSecrets bool
	// WithheldPaths replaces the whole content of matching files when redacting.
	WithheldPaths []string
}

type Collector struct {
	loader   document.Loader
	exts     map[string]bool
	maxBytes int64
	redact   bool
	withheld []string
}

func New(ctx context.Context, opts Options) (*Collector, error) {
	parserExt, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init file parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parserExt,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}

	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = true
	}
	withheld := opts.WithheldPaths
	if withheld == nil {
		withheld = redact.DefaultPathPatterns
	}
	return &Collector{
		loader:   loader,
		exts:     exts,
		maxBytes: opts.MaxFileBytes,
		redact:   opts.RedactSecrets,
		withheld: withheld,
	}, nil
}

// List returns the slash separated paths under root that pass the allow-list
// and skip rules, in walk order.
func (c *Collector) List(root string) ([]string, error) {
	var paths []string
	err := doublestar.GlobWalk(os.DirFS(root), "**", func(p string, d fs.DirEntry) error {
		if d.IsDir() || skipped(p) {
			return nil
		}
		if !c.exts[strings.ToLower(path.Ext(p))] {
			return nil
		}
		if c.maxBytes > 0 {
			info, err := d.Info()
			if err != nil {
				log.Printf("stat %s failed: %v", p, err)
				return nil
			}
			if info.Size() > c.maxBytes {
				log.Printf("skip %s: %d bytes over limit", p, info.Size())
				return nil
			}
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

func skipped(p string) bool {
	parts := strings.Split(p, "/")
	for _, dir := range parts[:len(parts)-1] {
		if skipDirs[dir] {
			return true
		}
	}
	base := parts[len(parts)-1]
	return skipFiles[base] || strings.HasPrefix(base, "._")
}

// Read returns the text of rel as sent to the model: notebooks without their
// outputs, everything else through the document loader.
func (c *Collector) Read(ctx context.Context, root, rel string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	var content string
	if strings.EqualFold(path.Ext(rel), notebook.Extension) {
		raw, err := os.ReadFile(full)
		if err != nil {
			return "", err
		}
		cleaned, err := notebook.StripOutputs(raw)
		if err != nil {
			return "", err
		}
		content = string(cleaned)
	} else {
		docs, err := c.loader.Load(ctx, document.Source{URI: full})
		if err != nil {
			return "", fmt.Errorf("load file: %w", err)
		}
		var b strings.Builder
		for _, doc := range docs {
			b.WriteString(doc.Content)
		}
		content = b.String()
	}

	if c.redact {
		var kinds []string
		if content, kinds = redact.Content(rel, content, c.withheld); len(kinds) > 0 {
			log.Printf("redacted %v in %s", kinds, rel)
		}
	}
	return content, nil
}

// Collect reads and summarizes every listed file. Unreadable files are logged
// and skipped; a summarize failure aborts the collection.
func (c *Collector) Collect(ctx context.Context, root, description string, s Summarizer) ([]*models.FileRecord, error) {
	paths, err := c.List(root)
	if err != nil {
		return nil, err
	}
	records := make([]*models.FileRecord, 0, len(paths))
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := c.Read(ctx, root, rel)
		if err != nil {
			if errors.Is(err, notebook.ErrInvalidNotebook) {
				log.Printf("skip %s: %v", rel, err)
			} else {
				log.Printf("read %s failed: %v", rel, err)
			}
			continue
		}
		summary, err := s.SummarizeFile(ctx, rel, content, description)
		if err != nil {
			return nil, err
		}
		records = append(records, &models.FileRecord{Path: rel, Content: content, Summary: summary})
	}
	return records, nil
}
