// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ingest"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/server"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/session"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve catalog search and ingestion control over HTTP",
	Long: `Serve exposes GET /api/search (sessions keyed by the X-Session-ID header),
DELETE /api/session to drop a session's cache,
POST/GET/DELETE /api/ingest to start, inspect, and cancel an ingestion run,
GET /metrics for Prometheus, and GET /healthz.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :3003)")
	serveCmd.Flags().String("plan", "", "plan file for ingestion runs (default: built-in Recife plan)")
	serveCmd.Flags().String("report", "", "write each ingestion report as YAML to this file")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	planPath, _ := cmd.Flags().GetString("plan")
	plan, err := loadPlan(planPath)
	if err != nil {
		return err
	}
	reportPath, _ := cmd.Flags().GetString("report")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.With(zap.String("command", "serve"))
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var onDone func(types.IngestionOutcome)
	if reportPath != "" {
		onDone = func(out types.IngestionOutcome) {
			if err := ingest.WriteReport(reportPath, plan, out); err != nil {
				log.Error("writing report", zap.String("path", reportPath), zap.Error(err))
			}
		}
	}

	srv := server.New(cfg.Server,
		a.orchestrator(),
		session.NewRegistry(cfg.Search.SessionCacheSize, cfg.Search.SessionTTL),
		server.NewIngestions(a.job(), plan, onDone, log),
		a.metrics,
		log)
	if err := srv.ListenAndServe(ctx); err != nil {
		return eris.Wrap(err, "serve")
	}
	return nil
}
