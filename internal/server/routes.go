package server

import "github.com/digitalplanet/shopclient/internal/server/handlers"

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.opts.Health.HealthHandler)
	s.router.Get("/health/live", s.opts.Health.LivenessHandler)
	s.router.Get("/health/ready", s.opts.Health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if gw := s.opts.Gateway; gw != nil {
		s.router.Get("/session", gw.SessionHandler)
		s.router.Get("/rate-limits", gw.RateLimitsHandler)
		s.router.Delete("/rate-limits", gw.ResetRateLimitsHandler)
		s.router.HandleFunc("/api/*", gw.Forward)
	}
}
