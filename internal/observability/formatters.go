// Package observability provides logging, run tracking and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/competition-radar/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len([]rune(line)) > boxWidth-4 {
			line = truncate(line, boxWidth-4)
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintIngestSummary outputs the counters of one ingestion run.
func (p *Printer) PrintIngestSummary(s *types.IngestSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Scraped:    %d\n", s.Scraped))
	sb.WriteString(fmt.Sprintf("Admitted:   %d\n", s.Admitted))
	sb.WriteString(fmt.Sprintf("Relocated:  %d\n", s.Relocated))
	sb.WriteString(fmt.Sprintf("Skipped:    %d url, %d description, %d in batch\n",
		s.SkippedURL, s.SkippedDescription, s.SkippedInBatch))

	if len(s.NewRecordIDs) > 0 {
		ids := make([]string, 0, len(s.NewRecordIDs))
		for _, id := range s.NewRecordIDs {
			ids = append(ids, fmt.Sprint(id))
		}
		sb.WriteString(fmt.Sprintf("New ids:    %s\n", strings.Join(ids, ", ")))
	}

	if len(s.SourceErrors) > 0 {
		sb.WriteString("\nSource errors:\n")
		count := min(len(s.SourceErrors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s: %s\n", s.SourceErrors[i].Source, s.SourceErrors[i].Message))
		}
		if len(s.SourceErrors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.SourceErrors)-maxItemsToShow))
		}
	}

	p.printBox("INGEST SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExtraction outputs every recovered field with the provider that supplied it.
func (p *Printer) PrintExtraction(res *types.ExtractionResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Record:  %d", res.RecordID))
	if res.Partial {
		sb.WriteString("  (partial)")
	}
	sb.WriteString("\n\n")

	present := res.Fields.Present()
	if len(present) == 0 {
		sb.WriteString("No fields recovered")
	}
	for _, field := range present {
		value := fmt.Sprint(res.Fields.Value(field))
		sb.WriteString(fmt.Sprintf("%-18s %-14s %s\n", field, res.ProvenanceOf(field), value))
	}

	p.printBox("EXTRACTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEnrichSummary outputs extraction and delivery counters.
func (p *Printer) PrintEnrichSummary(s *types.EnrichSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Requested:  %d\n", s.Requested))
	sb.WriteString(fmt.Sprintf("Extracted:  %d\n", s.Extracted))
	sb.WriteString(fmt.Sprintf("Updated:    %d\n", s.Updated))
	sb.WriteString("\n")
	sb.WriteString(deliveryLines(&s.Delivery))

	if len(s.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		count := min(len(s.Errors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", s.Errors[i]))
		}
		if len(s.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.Errors)-maxItemsToShow))
		}
	}

	p.printBox("ENRICH SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDelivery outputs the result of a delivery gate pass.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintDelivery(d *types.Delivery) {
	if d == nil || d.Selected == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NOTHING TO DELIVER")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}
	p.printBox("DELIVERY", strings.TrimSuffix(deliveryLines(d), "\n"))
}

func deliveryLines(d *types.Delivery) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Selected:   %d\n", d.Selected))
	sb.WriteString(fmt.Sprintf("Delivered:  %d\n", d.Delivered))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", d.Failed))
	count := min(len(d.Errors), 3)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  ⚠ %s\n", d.Errors[i]))
	}
	return sb.String()
}
