// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ingest"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// ErrRunning is returned by Start while a run is in progress.
var ErrRunning = errors.New("ingestion already running")

// Runner executes one ingestion run. *ingest.Job satisfies it.
type Runner interface {
	Run(ctx context.Context, cells []types.Cell, categories []string) (types.IngestionOutcome, error)
}

// IngestStatus is the /api/ingest body.
type IngestStatus struct {
	Running   bool                    `json:"running"`
	StartedAt *time.Time              `json:"started_at,omitempty"`
	Last      *types.IngestionOutcome `json:"last,omitempty"`
	LastError string                  `json:"last_error,omitempty"`
}

// Ingestions runs at most one ingestion at a time in the background and
// keeps the outcome of the last finished run.
type Ingestions struct {
	runner Runner
	plan   ingest.Plan
	log    *zap.Logger

	// onDone, when set, receives each finished outcome (report writing).
	onDone func(types.IngestionOutcome)

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	last      *types.IngestionOutcome
	lastErr   string
}

// NewIngestions returns a manager sweeping plan with runner. onDone may
// be nil.
func NewIngestions(runner Runner, plan ingest.Plan, onDone func(types.IngestionOutcome), log *zap.Logger) *Ingestions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestions{runner: runner, plan: plan, onDone: onDone, log: log.Named("ingestions")}
}

// Start launches a detached run, or returns ErrRunning.
func (m *Ingestions) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.startedAt = time.Now().UTC()

	go func() {
		defer close(done)
		out, err := m.runner.Run(ctx, m.plan.Cells, m.plan.Categories)
		cancel()
		if err != nil {
			m.log.Warn("ingestion ended with error", zap.Error(err))
		}
		if m.onDone != nil {
			m.onDone(out)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.last = &out
		m.lastErr = ""
		if err != nil {
			m.lastErr = err.Error()
		}
		m.cancel = nil
	}()
	return nil
}

// Cancel stops the running run and reports whether one was running. The
// run finishes its current sweep before stopping.
func (m *Ingestions) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Wait blocks until the current run, if any, has finished.
func (m *Ingestions) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status reports whether a run is in progress and the last outcome.
func (m *Ingestions) Status() IngestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := IngestStatus{Running: m.cancel != nil, Last: m.last, LastError: m.lastErr}
	if st.Running {
		started := m.startedAt
		st.StartedAt = &started
	}
	return st
}
