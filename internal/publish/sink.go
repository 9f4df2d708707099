// Package publish delivers finished posture reports to downstream consumers:
// the local archive, a Kafka topic and executable plugins.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/posturelab/internal/posture"
)

// Sink consumes finished reports.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report *posture.Report) error
}

// Source values describe where a pose came from.
const (
	SourceUpload = "upload"
	SourceLive   = "live"
)

type sourceKey struct{}

// WithSource tags ctx with the origin of the report being published.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the origin set by WithSource, or SourceUpload.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceUpload
}

// Fanout publishes each report to every sink in order.
type Fanout struct {
	sinks   []Sink
	logger  *slog.Logger
	onError func(sink string)
}

// NewFanout creates a Fanout. onError, when set, is called with the sink
// name for each failed delivery.
func NewFanout(logger *slog.Logger, onError func(sink string), sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, logger: logger, onError: onError}
}

// Add appends a sink.
func (f *Fanout) Add(s Sink) {
	f.sinks = append(f.sinks, s)
}

// Name implements Sink.
func (f *Fanout) Name() string {
	return "fanout"
}

// Publish delivers the report to all sinks. A failing sink does not stop the
// others; all failures are logged and returned joined.
func (f *Fanout) Publish(ctx context.Context, report *posture.Report) error {
	if report == nil {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, report); err != nil {
			f.logger.Warn("sink failed", "sink", s.Name(), "analysis", report.Analysis.ID, "error", err)
			if f.onError != nil {
				f.onError(s.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
