// Package organize composes new PDF documents out of pages selected
// from previously ingested source documents. A recipe is an ordered
// list of steps, each naming a source document, a zero-based page
// index and an optional rotation. The output page order is exactly
// the recipe order.
package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrEmptyRecipe    = errors.New("organize: recipe has no steps")
	ErrSourceNotFound = errors.New("organize: source document not found")
	ErrPageOutOfRange = errors.New("organize: page index out of range")
	ErrBadRotation    = errors.New("organize: rotation must be 0, 90, 180 or 270")
)

// Step selects one page from one source document.
type Step struct {
	SourceDocumentID string `json:"sourceDocumentId"`
	PageIndex        int    `json:"sourcePageIndex"`
	Rotation         int    `json:"rotation"`
}

// Resolver maps a document id to the path of that document's PDF
// content. It returns false when the document is unknown or has no
// PDF representation on disk.
type Resolver func(docID string) (string, bool)

type Config struct {
	Resolve Resolver
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Composer builds output PDFs from recipes. It is stateless between
// calls and safe for concurrent use.
type Composer struct {
	resolve Resolver
	logger  *slog.Logger
	conf    *model.Configuration
}

func New(cfg Config) *Composer {
	cfg.defaults()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Composer{resolve: cfg.Resolve, logger: cfg.Logger, conf: conf}
}

// source is a resolved recipe input, opened and counted once no
// matter how many steps reference it.
type source struct {
	path  string
	pages int
}

// planned is a fully validated step: source path plus 1-based page
// number and normalized rotation.
type planned struct {
	src      *source
	page     int
	rotation int
}

// Compose validates the whole recipe, then assembles the selected
// pages into outPath. Any failure aborts the operation with no
// output file written.
func (c *Composer) Compose(ctx context.Context, steps []Step, outPath string) error {
	if len(steps) == 0 {
		return ErrEmptyRecipe
	}

	plans, err := c.validate(steps)
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "organize-*")
	if err != nil {
		return fmt.Errorf("organize: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	parts := make([]string, 0, len(plans))
	for i, p := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		part := filepath.Join(tmpDir, fmt.Sprintf("part_%04d.pdf", i))
		sel := []string{strconv.Itoa(p.page)}
		if err := api.TrimFile(p.src.path, part, sel, c.conf); err != nil {
			return fmt.Errorf("organize: step %d: extract page %d of %s: %w", i+1, p.page, p.src.path, err)
		}
		if p.rotation != 0 {
			if err := api.RotateFile(part, "", p.rotation, nil, c.conf); err != nil {
				return fmt.Errorf("organize: step %d: rotate by %d: %w", i+1, p.rotation, err)
			}
		}
		parts = append(parts, part)
	}

	if err := api.MergeCreateFile(parts, outPath, false, c.conf); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("organize: merge %d pages: %w", len(parts), err)
	}

	c.logger.Info("composed document", "steps", len(plans), "output", outPath)
	return nil
}

// validate resolves every source and checks every step before any
// page is extracted. Sources referenced by multiple steps are opened
// and page-counted once.
func (c *Composer) validate(steps []Step) ([]planned, error) {
	sources := make(map[string]*source)
	plans := make([]planned, 0, len(steps))

	for i, s := range steps {
		src, ok := sources[s.SourceDocumentID]
		if !ok {
			path, found := c.resolve(s.SourceDocumentID)
			if !found {
				return nil, fmt.Errorf("step %d: document %q: %w", i+1, s.SourceDocumentID, ErrSourceNotFound)
			}
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("step %d: document %q: %w", i+1, s.SourceDocumentID, ErrSourceNotFound)
			}
			pages, err := api.PageCountFile(path)
			if err != nil {
				return nil, fmt.Errorf("step %d: read %s: %w", i+1, path, err)
			}
			src = &source{path: path, pages: pages}
			sources[s.SourceDocumentID] = src
		}

		if s.PageIndex < 0 || s.PageIndex >= src.pages {
			return nil, fmt.Errorf("step %d: page index %d of document %q with %d pages: %w",
				i+1, s.PageIndex, s.SourceDocumentID, src.pages, ErrPageOutOfRange)
		}

		rot, err := NormalizeRotation(s.Rotation)
		if err != nil {
			return nil, fmt.Errorf("step %d: rotation %d: %w", i+1, s.Rotation, err)
		}

		plans = append(plans, planned{src: src, page: s.PageIndex + 1, rotation: rot})
	}
	return plans, nil
}

// NormalizeRotation folds a rotation into [0,360) and rejects
// anything that is not a quarter turn.
func NormalizeRotation(deg int) (int, error) {
	n := deg % 360
	if n < 0 {
		n += 360
	}
	switch n {
	case 0, 90, 180, 270:
		return n, nil
	default:
		return 0, ErrBadRotation
	}
}
