// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and prysm contributors
//
// SPDX-License-Identifier: Apache-2.0

package smartmetrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// exporterMetrics describe the exporter itself. Their names live under
// smartprom_exporter_ so they can't clash with attribute gauges.
type exporterMetrics struct {
	collectErrors *prometheus.CounterVec
	cycleDuration prometheus.Gauge
}

func newExporterMetrics(reg prometheus.Registerer, registry *Registry) *exporterMetrics {
	m := &exporterMetrics{
		collectErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartprom_exporter_collect_errors_total",
				Help: "Number of failed device collections",
			},
			[]string{"drive", "type", "reason"},
		),
		cycleDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartprom_exporter_last_cycle_duration_seconds",
				Help: "Duration of the last collection cycle",
			},
		),
	}

	reg.MustRegister(m.collectErrors)
	reg.MustRegister(m.cycleDuration)
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "smartprom_exporter_registered_metrics",
			Help: "Number of attribute gauges created so far",
		},
		func() float64 { return float64(registry.Len()) },
	))

	return m
}

func (m *exporterMetrics) collectError(dev Device, reason string) {
	if m == nil {
		return
	}
	m.collectErrors.WithLabelValues(dev.ID(), dev.Type, reason).Inc()
}

func (m *exporterMetrics) observeCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Set(d.Seconds())
}

// newPrometheusRegistry returns the registry served on /metrics, with the Go
// runtime and process collectors already registered.
func newPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

const landingPage = `<html>
<head><title>smartprom</title></head>
<body>
<h1>smartprom</h1>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>`

func newMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if _, err := w.Write([]byte(landingPage)); err != nil {
			log.Error().Err(err).Msg("error writing response")
		}
	})
	return mux
}

// StartPrometheusServer serves the metrics of gatherer until ctx is done.
func StartPrometheusServer(ctx context.Context, address string, port int, gatherer prometheus.Gatherer) *http.Server {
	srv := &http.Server{
		Addr:              net.JoinHostPort(address, strconv.Itoa(port)),
		Handler:           newMetricsHandler(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening in http://%s/metrics", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("error starting prometheus metrics server")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(fmt.Errorf("error shutting down metrics server: %w", err)).Send()
		}
	}()

	return srv
}
