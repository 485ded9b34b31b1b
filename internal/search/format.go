// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// FormatTable writes results as a human-readable table to w.
func FormatTable(resp Response, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-40s  %-20s  %-20s  %-6s  %-5s  %s\n",
		"#", "Name", "Neighborhood", "Cuisine", "Rating", "Price", "Distance")
	fmt.Fprintln(w, strings.Repeat("-", 112))

	offset := 0
	if resp.Page > 1 && len(resp.Results) > 0 {
		offset = (resp.Page - 1) * len(resp.Results)
	}
	for i, r := range resp.Results {
		rating := "-"
		if r.Rating != nil {
			rating = fmt.Sprintf("%.1f", *r.Rating)
		}
		price := "-"
		if r.PriceLevel > 0 {
			price = strings.Repeat("$", r.PriceLevel)
		}
		fmt.Fprintf(w, "%-4d  %-40s  %-20s  %-20s  %-6s  %-5s  %s\n",
			offset+i+1,
			truncate(r.Name, 40),
			truncate(r.Neighborhood, 20),
			truncate(strings.Join(r.CuisineTypes, ", "), 20),
			rating, price, r.Distance)
	}

	fmt.Fprintf(w, "\n%d results (page %d)", len(resp.Results), resp.Page)
	if resp.Fallback != FallbackNone && resp.Fallback != "" {
		fmt.Fprintf(w, ", provider fallback: %s", resp.Fallback)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp Response, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
