/*
audit.go - Scheduled ledger audit sweep

PURPOSE:
  Periodically re-verifies the income-to-ledger linkage invariant and
  repairs drift (ledger entries deleted or edited outside
  reconciliation). The sweep is the safety net behind the per-mutation
  reconciliation triggers.

DESIGN:
  - cron-driven; schedule is a standard 5-field cron expression
    (default: nightly at 03:00)
  - Each run delegates to ledger.Service.AuditSweep, which takes the
    same per-income locks as the mutation path

USAGE:
  auditor := NewAuditor(reconciler, "0 3 * * *", logger)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - ledger/reconcile.go: AuditSweep implementation
  - handlers.go: RunAudit endpoint (manual trigger)
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/portfolio-engine/ledger"
)

// Auditor runs the ledger audit sweep on a cron schedule.
type Auditor struct {
	Reconciler *ledger.Service
	Schedule   string

	log  logrus.FieldLogger
	cron *cron.Cron
}

// NewAuditor creates an auditor. An empty schedule disables it.
func NewAuditor(reconciler *ledger.Service, schedule string, log *logrus.Logger) *Auditor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Auditor{
		Reconciler: reconciler,
		Schedule:   schedule,
		log:        log.WithField("component", "auditor"),
	}
}

// Start begins scheduled sweeps. Invalid schedules are logged and
// disable the auditor rather than failing startup.
func (a *Auditor) Start() {
	if a.Schedule == "" {
		a.log.Info("audit schedule empty, auditor disabled")
		return
	}

	c := cron.New()
	_, err := c.AddFunc(a.Schedule, a.runOnce)
	if err != nil {
		a.log.WithError(err).Warnf("invalid audit schedule %q, auditor disabled", a.Schedule)
		return
	}
	c.Start()
	a.cron = c
	a.log.Infof("auditor started with schedule %q", a.Schedule)
}

// Stop halts scheduled sweeps, waiting for a running sweep to finish.
func (a *Auditor) Stop() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
	a.log.Info("auditor stopped")
}

func (a *Auditor) runOnce() {
	report, err := a.Reconciler.AuditSweep(context.Background())
	if err != nil {
		a.log.WithError(err).Error("ledger audit sweep failed")
		return
	}
	if report.Repaired > 0 {
		a.log.Warnf("ledger audit repaired %d of %d rent incomes", report.Repaired, report.RentIncomes)
	}
}
