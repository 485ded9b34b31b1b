// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// Report is the on-disk record of one ingestion run: the plan it swept
// and the outcome it produced.
type Report struct {
	Plan    Plan                   `yaml:"plan"`
	Outcome types.IngestionOutcome `yaml:"outcome"`
}

// WriteReport saves the plan and outcome of a run as YAML.
func WriteReport(path string, plan Plan, out types.IngestionOutcome) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	data, err := yaml.Marshal(&Report{Plan: plan, Outcome: out})
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}

// PrintSummary writes a human-readable run summary to w.
func PrintSummary(w io.Writer, out types.IngestionOutcome) {
	fmt.Fprintf(w, "Inserted: %d, skipped: %d, updated: %d, filtered: %d, errors: %d\n",
		out.Inserted, out.Skipped, out.Updated, out.Filtered, len(out.Errors))
	if !out.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Elapsed: %s\n", out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond))
	}
	if out.Interrupted {
		fmt.Fprintln(w, "Run was interrupted before all sweeps completed.")
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  error: %s: %s\n", e.Context, e.Message)
	}
}
