// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Sweep the configured grid and add new places to the catalog",
	Long: `Ingest runs a nearby search for every (cell, category) pair in the plan,
keeps places that pass the rating and review gates, and inserts the ones
the catalog does not know yet. Re-running is safe: known places are
skipped. SIGINT or SIGTERM stops the run after the current sweep.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("plan", "", "plan file listing cells and categories (default: built-in Recife plan)")
	ingestCmd.Flags().String("report", "", "write the run report as YAML to this file")
	ingestCmd.Flags().String("write-plan", "", "write the built-in plan to this file and exit")
	ingestCmd.Flags().Bool("refresh", false, "refresh rating and opening state of known places")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if out, _ := cmd.Flags().GetString("write-plan"); out != "" {
		if err := ingest.WritePlan(out, ingest.DefaultPlan()); err != nil {
			return eris.Wrap(err, "writing plan")
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	}

	planPath, _ := cmd.Flags().GetString("plan")
	plan, err := loadPlan(planPath)
	if err != nil {
		return err
	}
	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		cfg.Ingestion.RefreshExisting = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.With(zap.String("command", "ingest"))
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	out, runErr := a.job().Run(ctx, plan.Cells, plan.Categories)
	ingest.PrintSummary(os.Stdout, out)

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := ingest.WriteReport(reportPath, plan, out); err != nil {
			log.Error("writing report", zap.String("path", reportPath), zap.Error(err))
		} else {
			log.Info("report written", zap.String("path", reportPath))
		}
	}

	if runErr != nil {
		if out.Interrupted {
			return eris.New("ingestion interrupted; re-run to continue")
		}
		return eris.Wrap(runErr, "ingest")
	}
	return nil
}
