/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package metrics exposes the per-package prometheus collectors over an
// HTTP endpoint.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padsync/strata/container"
	"github.com/padsync/strata/log"
	"github.com/padsync/strata/proof"
)

// DefaultCollectors returns every collector the core packages publish.
func DefaultCollectors() []prometheus.Collector {
	collectors := container.Collectors()
	collectors = append(collectors, proof.Collectors()...)
	return collectors
}

// NewMetricsHTTP returns a mux exposing the registry, together with the
// process default gatherer, under /metrics.
func NewMetricsHTTP(r *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	g := prometheus.Gatherers{
		prometheus.DefaultGatherer,
		r,
	}

	handler := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	instrumentedHandler := promhttp.InstrumentMetricHandler(r, handler)
	mux.Handle("/metrics", instrumentedHandler)
	return mux
}

// Server serves a prometheus registry over HTTP.
type Server struct {
	server   *http.Server
	registry *prometheus.Registry
}

// NewServer builds a metrics server listening on addr with an empty
// registry.
func NewServer(addr string) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: NewMetricsHTTP(registry),
		},
		registry: registry,
	}
}

// Register adds collectors to the server registry. Registering the same
// collector twice panics, as in prometheus itself.
func (s *Server) Register(collectors ...prometheus.Collector) {
	for _, collector := range collectors {
		s.registry.MustRegister(collector)
	}
}

// Start serves the endpoint until Shutdown.
func (s *Server) Start() error {
	log.Infof("Metrics enabled on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
