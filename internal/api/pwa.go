package api

import (
	"github.com/labstack/echo/v4"
)

// registerPWARoutes pins cache semantics for the PWA support files. Both
// are proxied from the upstream like any other request, but they have
// fixed (non-hashed) names, so the browser must revalidate them instead
// of honoring long-lived asset cache headers.
func (s *Server) registerPWARoutes() {
	s.echo.GET("/manifest.webmanifest", func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-cache")
		s.worker.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	// The worker script must be served from the root path so its scope
	// covers the entire application.
	s.echo.GET("/sw.js", func(c echo.Context) error {
		c.Response().Header().Set("Service-Worker-Allowed", "/")
		c.Response().Header().Set("Cache-Control", "no-cache")
		s.worker.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}
