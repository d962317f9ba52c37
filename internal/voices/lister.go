// Package voices renders the remote voice directory as a table.
package voices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papervoice/papervoice/internal/tts"
)

var (
	nameStyle   = lipgloss.NewStyle().Width(35)
	genderStyle = lipgloss.NewStyle().Width(10)
	headerStyle = lipgloss.NewStyle().Bold(true)
)

const tableWidth = 60

// Lister queries a voice catalog and prints a filtered table. A catalog
// failure is logged and swallowed: listing voices never exits non-zero.
type Lister struct {
	catalog tts.Catalog
	logger  *slog.Logger
	out     io.Writer
}

func NewLister(catalog tts.Catalog, log *slog.Logger, out io.Writer) *Lister {
	return &Lister{
		catalog: catalog,
		logger:  log.With(slog.String("component", "voices")),
		out:     out,
	}
}

// List prints every neural voice whose locale starts with localePrefix.
func (l *Lister) List(ctx context.Context, localePrefix string) {
	fmt.Fprintf(l.out, "Searching voices with locale prefix %q...\n", localePrefix)

	all, err := l.catalog.ListVoices(ctx)
	if err != nil {
		l.logger.Error("failed to list voices", slog.String("error", err.Error()))
		return
	}

	l.render(Filter(all, localePrefix))
}

// Filter keeps neural voices whose locale starts with prefix.
func Filter(all []tts.Voice, prefix string) []tts.Voice {
	var kept []tts.Voice
	for _, v := range all {
		if strings.HasPrefix(v.Locale, prefix) && strings.Contains(v.ShortName, "Neural") {
			kept = append(kept, v)
		}
	}
	return kept
}

func (l *Lister) render(filtered []tts.Voice) {
	rule := strings.Repeat("═", tableWidth)
	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, rule)
	fmt.Fprintf(l.out, "%s | %s | %s\n",
		headerStyle.Render(nameStyle.Render("SHORT NAME")),
		headerStyle.Render(genderStyle.Render("GENDER")),
		headerStyle.Render("LOCALE"))
	fmt.Fprintln(l.out, strings.Repeat("─", tableWidth))
	for _, v := range filtered {
		fmt.Fprintf(l.out, "%s | %s | %s\n",
			nameStyle.Render(v.ShortName),
			genderStyle.Render(v.Gender),
			v.Locale)
	}
	fmt.Fprintln(l.out, rule)
	fmt.Fprintln(l.out)
}
