// Package network is the facade over the network credit scoring module:
// anonymized payment observations pooled across tenants, aggregated buyer
// profiles, community score access, and pattern-detection intelligence.
package network

import (
	"log/slog"

	"creditnet/internal/network/detect"
	"creditnet/internal/network/handler"
	"creditnet/internal/network/service"
	"creditnet/internal/network/store"
)

// Service exposes the network credit scoring operations.
type Service = service.Service

// Handler wires HTTP endpoints to the network service.
type Handler = handler.Handler

// Detector runs the pattern detectors over the observation pool.
type Detector = detect.Runner

// NewService constructs the network service over the four stores.
func NewService(
	observations store.ObservationStore,
	profiles store.ProfileStore,
	contributions store.ContributionStore,
	intelligence store.IntelligenceStore,
	opts ...service.Option,
) *Service {
	return service.New(observations, profiles, contributions, intelligence, opts...)
}

// NewHandler constructs the HTTP handler for tenant-facing network routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}

// NewDetector constructs the pattern-detection runner.
func NewDetector(observations store.ObservationStore, intelligence store.IntelligenceStore, opts ...detect.Option) *Detector {
	return detect.NewRunner(observations, intelligence, opts...)
}
