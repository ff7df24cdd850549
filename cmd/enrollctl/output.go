package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/enrollment/internal/core"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return withCode(exitUsage, fmt.Errorf("unknown --format %q (want text, json or yaml)", format))
}

// writeReport encodes v as JSON or YAML, or calls text for the human form.
func writeReport(w io.Writer, format string, v any, text func(*printer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	p := &printer{w: w}
	text(p)
	return p.err
}

// printer writes lines and keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func printValidation(p *printer, file string, res *core.ValidateResult) {
	p.line("file: %s", file)
	p.line("rows: %d (valid %d, invalid %d)", res.TotalRecords, res.ValidRecords, res.InvalidRecords)
	if len(res.DroppedLines) > 0 {
		lines := make([]string, len(res.DroppedLines))
		for i, l := range res.DroppedLines {
			lines[i] = fmt.Sprint(l)
		}
		p.line("skipped malformed lines: %s", strings.Join(lines, ", "))
	}
	for _, msg := range res.ErrorMessages {
		p.line("  %s", msg)
	}
}

func printOutcome(p *printer, out *core.ImportOutcome) {
	p.line("import %s: %d imported, %d failed", out.ImportID, out.SuccessCount, out.FailureCount)
	for _, w := range out.Warnings {
		p.line("warning: %s", w)
	}
	if p.err != nil {
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tNAME\tENROLLMENT\tRESULT")
	for _, d := range out.Details {
		result := "ok"
		if !d.Success {
			result = d.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.RowNumber, d.Name, d.EnrollmentNumber, result)
	}
	p.err = tw.Flush()
}

func printHistory(p *printer, entries []core.ImportLogEntry) {
	if len(entries) == 0 {
		p.line("no imports yet")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFILE\tACTOR\tCOURSE\tROWS\tOK\tFAILED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			e.CreatedAt.Format(time.DateTime), e.FileName, e.ActorID, e.TargetCourseID,
			e.TotalRows, e.SuccessCount, e.FailureCount)
	}
	p.err = tw.Flush()
}
