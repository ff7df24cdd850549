// Package templates renders the HTMX fragments returned by the import
// endpoints. Components live in .templ files; run `templ generate` after
// editing them.
package templates

import (
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/enrollment/internal/core"
)

// previewColumns orders preview columns as in the import template, followed
// by any other columns of the upload in name order.
func previewColumns(row map[string]string) []string {
	cols := make([]string, 0, len(row))
	for _, f := range core.TemplateHeader {
		if _, ok := row[f]; ok {
			cols = append(cols, f)
		}
	}
	var extra []string
	for k := range row {
		if !slices.Contains(cols, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(cols, extra...)
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ", ")
}
