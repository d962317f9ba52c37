// Package extract turns documents into a single sanitized string ready for
// speech synthesis.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNotFound reports a missing input file.
	ErrNotFound = errors.New("input file not found")
	// ErrEmptyDocument reports a document with zero pages.
	ErrEmptyDocument = errors.New("document contains no pages")
)

// Extractor produces synthesis-ready text from a file path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ProgressFunc receives cosmetic per-page progress updates.
type ProgressFunc func(page, total int)

// PDFExtractor reads PDF files. Progress, when set, is called every
// progressEvery pages.
type PDFExtractor struct {
	Progress ProgressFunc
	logger   *slog.Logger
}

const progressEvery = 25

func NewPDFExtractor(log *slog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: log.With(slog.String("component", "extract"))}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("stat input: %w", err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, path)
	}

	e.logger.Info("reading pdf", slog.String("path", path), slog.Int("pages", total))

	var pages []string
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole document.
			e.logger.Warn("skipping unreadable page", slog.Int("page", i), slog.String("error", err.Error()))
			continue
		}
		if clean := RemoveIncompatible(raw); clean != "" {
			pages = append(pages, clean)
		}
		if e.Progress != nil && i%progressEvery == 0 {
			e.Progress(i, total)
		}
	}

	return CollapseWhitespace(strings.Join(pages, " ")), nil
}

// RemoveIncompatible strips characters the synthesis service rejects:
// C0/C1 controls other than tab, newline and carriage return, plus Unicode
// format characters.
func RemoveIncompatible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// CollapseWhitespace reduces every whitespace run to a single space and trims
// the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
