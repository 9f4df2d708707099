package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/posturelab/internal/posture"
)

// Dispatcher delivers finished analyses to every subscribed plugin.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over discovered plugins.
func NewDispatcher(manager *Manager, executor *Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{manager: manager, executor: executor, logger: logger}
}

// Name identifies the dispatcher among analysis sinks.
func (d *Dispatcher) Name() string {
	return "plugins"
}

// Publish runs each plugin accepting the report. Plugins run one after
// another; every failure is collected and returned together.
func (d *Dispatcher) Publish(ctx context.Context, report *posture.Report) error {
	if report == nil || report.Analysis == nil {
		return nil
	}

	var errs []error
	for _, p := range d.manager.List() {
		if !p.Manifest.Accepts(EventAnalysisCompleted, report.Analysis.OverallScore) {
			continue
		}

		resp, err := d.executor.Execute(ctx, p, &Request{
			Event:    EventAnalysisCompleted,
			Analysis: report.Analysis,
			Note:     report.Note,
			Config:   p.Manifest.Config,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", p.Manifest.Name, err))
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error))
			continue
		}

		d.logger.Debug("plugin delivered", "plugin", p.Manifest.Name, "analysis", report.Analysis.ID)
	}

	return errors.Join(errs...)
}
