package metrics

import (
	"io"
	"time"

	librato "github.com/mihasya/go-metrics-librato"
	"github.com/pkg/errors"
	gometrics "github.com/rcrowley/go-metrics"
)

// LibratoConfig holds the credentials used by FlushLibrato.
type LibratoConfig struct {
	Email, Token, Source string
}

// Enabled reports whether all credentials are present.
func (c *LibratoConfig) Enabled() bool {
	return c != nil && c.Email != "" && c.Token != "" && c.Source != ""
}

// FlushLibrato posts a single snapshot of DefaultRegistry to Librato.
func FlushLibrato(cfg *LibratoConfig) error {
	reporter := librato.NewReporter(DefaultRegistry, time.Minute,
		cfg.Email, cfg.Token, cfg.Source,
		[]float64{0.50, 0.75, 0.95, 0.99, 1.0}, time.Millisecond)

	batch, err := reporter.BuildRequest(time.Now(), DefaultRegistry)
	if err != nil {
		return errors.Wrap(err, "couldn't build librato batch")
	}

	client := &librato.LibratoClient{Email: cfg.Email, Token: cfg.Token}
	return errors.Wrap(client.PostMetrics(batch), "couldn't post metrics to librato")
}

// WriteOnce writes a human readable snapshot of DefaultRegistry to w.
func WriteOnce(w io.Writer) {
	gometrics.WriteOnce(DefaultRegistry, w)
}
