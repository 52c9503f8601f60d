package tracing

import (
	"context"

	"example.com/backstage/services/tenders/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewApplication starts the New Relic agent. A nil application is returned
// when no license key is configured; every helper here accepts it.
func NewApplication(cfg config.NewRelicConfig) (*newrelic.Application, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}
	return app, nil
}

// StartSegment starts a segment in the transaction carried by ctx.
// End the returned segment when the work is done.
func StartSegment(ctx context.Context, name string) *newrelic.Segment {
	return newrelic.FromContext(ctx).StartSegment(name)
}

// NoticeError records err on the transaction carried by ctx
func NoticeError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	newrelic.FromContext(ctx).NoticeError(err)
}

// StartBackground starts a non-web transaction for background jobs and
// returns a context carrying it
func StartBackground(ctx context.Context, app *newrelic.Application, name string) (context.Context, func()) {
	txn := app.StartTransaction(name)
	if txn == nil {
		return ctx, func() {}
	}
	return newrelic.NewContext(ctx, txn), txn.End
}
