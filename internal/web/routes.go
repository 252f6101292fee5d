package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/light-recon/internal/web/handlers"
)

// requestTimeout bounds every non-streaming request. A registry rebuild
// embeds the whole dataset, hence the generous value.
const requestTimeout = 5 * time.Minute

func (s *Server) setupRoutes() {
	liveHandler := handlers.NewLiveHandler(s.deps.Hub, s.deps.Switcher, s.deps.Cameras, s.deps.Origins.CheckOrigin, s.logger)
	subjectsHandler := handlers.NewSubjectsHandler(s.deps.Registry, s.logger)
	profilesHandler := handlers.NewProfilesHandler(s.deps.Profiles, s.deps.Settings, s.deps.Journal, s.logger)
	sightingsHandler := handlers.NewSightingsHandler(s.deps.Journal, s.logger)
	settingsHandler := handlers.NewSettingsHandler(s.deps.Settings)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Streams stay open for the lifetime of the client.
		r.Get("/events", liveHandler.Events)
		r.Get("/ws", liveHandler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/health", handlers.HealthCheck)

			// Live session
			r.Get("/state", liveHandler.State)
			r.Get("/cameras", liveHandler.ListCameras)
			r.Post("/camera", liveHandler.SwitchCamera)

			// Registry
			r.Get("/subjects", subjectsHandler.List)
			r.Post("/registry/rebuild", subjectsHandler.Rebuild)

			// Profiles
			r.Get("/profiles", profilesHandler.List)
			r.Get("/profiles/{label}", profilesHandler.Get)
			r.Put("/profiles/{label}", profilesHandler.Update)
			r.Get("/profiles/{label}/sightings", profilesHandler.Sightings)

			// Journal
			r.Get("/sightings/stats", sightingsHandler.Stats)
			r.Get("/sessions/{id}/sightings", sightingsHandler.Session)

			// Settings
			r.Get("/settings", settingsHandler.Get)
			r.Get("/settings/taxonomies", settingsHandler.Taxonomies)
		})
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex answers the root with a placeholder page pointing at the API.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Light Recon</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        code { background: #2a2a3e; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Light Recon</h1>
        <p>Live state: <a href="/api/v1/state">/api/v1/state</a>, stream: <code>/api/v1/events</code> or <code>/api/v1/ws</code></p>
        <p>Subjects: <a href="/api/v1/subjects">/api/v1/subjects</a>, profiles: <a href="/api/v1/profiles">/api/v1/profiles</a></p>
        <p>Health: <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
