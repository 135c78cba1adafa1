// Package printer renders layouts, page lists and allocator counters as
// human-readable text or JSON.
package printer

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/pglist/phys"
	"github.com/joshuapare/pglist/phys/pglist"
	"github.com/joshuapare/pglist/phys/reclaim"
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// ShowPages lists every page address of a page list, not just extents.
	// Default: false
	ShowPages bool

	// IndentSize is the number of spaces per nesting level (text only).
	// Default: 2
	IndentSize int
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:     FormatText,
		IndentSize: 2,
	}
}

// Printer writes formatted allocator state to a writer.
type Printer struct {
	opts Options
	w    io.Writer
	num  *message.Printer
}

// New creates a Printer writing to w.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.PrintLayout(m)
func New(w io.Writer, opts Options) *Printer {
	if opts.IndentSize <= 0 {
		opts.IndentSize = 2
	}
	return &Printer{
		opts: opts,
		w:    w,
		num:  message.NewPrinter(language.English),
	}
}

// PrintLayout prints every segment of m's layout with its free count.
func (p *Printer) PrintLayout(m *phys.Manager) error {
	if p.opts.Format == FormatJSON {
		return p.printLayoutJSON(m)
	}
	return p.printLayoutText(m)
}

// PrintList prints an allocation result grouped into extents.
func (p *Printer) PrintList(list phys.PageList, pageSize uint64) error {
	if p.opts.Format == FormatJSON {
		return p.printListJSON(list, pageSize)
	}
	return p.printListText(list, pageSize)
}

// PrintStats prints allocator counters, and daemon counters when d is
// non-nil.
func (p *Printer) PrintStats(st pglist.Stats, d *reclaim.Stats) error {
	if p.opts.Format == FormatJSON {
		return p.printStatsJSON(st, d)
	}
	return p.printStatsText(st, d)
}
