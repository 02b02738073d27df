package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

type App interface {
	AutoEnd(ctx context.Context) ([]models.Meeting, error)
	RemindStarting(ctx context.Context) ([]models.Meeting, error)
}

// Worker runs the periodic auto-end sweep and the starting-now reminders.
type Worker struct {
	log         *logrus.Entry
	app         App
	sweepEvery  time.Duration
	remindEvery time.Duration
}

func New(log *logrus.Logger, app App, sweepEvery, remindEvery time.Duration) *Worker {
	return &Worker{
		log:         log.WithField("component", "worker"),
		app:         app,
		sweepEvery:  sweepEvery,
		remindEvery: remindEvery,
	}
}

// Run blocks until ctx is done. A failed pass is logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context) {
	sweep := time.NewTicker(w.sweepEvery)
	defer sweep.Stop()
	remind := time.NewTicker(w.remindEvery)
	defer remind.Stop()

	w.sweep(ctx)
	w.remind(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-sweep.C:
			w.sweep(ctx)
		case <-remind.C:
			w.remind(ctx)
		}
	}
}

// SweepOnce runs a single auto-end pass.
func (w *Worker) SweepOnce(ctx context.Context) error {
	ended, err := w.app.AutoEnd(ctx)
	if err != nil {
		return fmt.Errorf("worker sweep failed: %w", err)
	}
	if len(ended) > 0 {
		w.log.Infof("sweep ended %d meetings", len(ended))
	}
	return nil
}

func (w *Worker) sweep(ctx context.Context) {
	if err := w.SweepOnce(ctx); err != nil {
		w.log.Error(err)
	}
}

func (w *Worker) remind(ctx context.Context) {
	due, err := w.app.RemindStarting(ctx)
	if err != nil {
		w.log.Errorf("worker reminders failed: %v", err)
		return
	}
	if len(due) > 0 {
		w.log.Infof("sent starting reminders for %d meetings", len(due))
	}
}
