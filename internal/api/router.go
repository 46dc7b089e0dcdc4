package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hermes-platform/console-api/internal/api/handlers"
	"github.com/hermes-platform/console-api/internal/api/middleware"
	"github.com/hermes-platform/console-api/internal/audit"
	"github.com/hermes-platform/console-api/internal/auth"
	"github.com/hermes-platform/console-api/internal/execution"
	"github.com/hermes-platform/console-api/internal/memory"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/hermes-platform/console-api/internal/workspace"
)

// Deps carries everything the HTTP surface needs. main wires it once.
type Deps struct {
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Sessions     *session.Service
	Workspaces   *workspace.Service
	Executions   *execution.Service
	Memory       *memory.Service
	Audit        *audit.Service
	APIKeyHeader string
	CORSOrigins  []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins))

	limiter := middleware.NewRateLimiter(20, 40)
	r.Use(limiter.Limit)

	health := handlers.NewHealthHandler(d.DB, d.Redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	authHandler := handlers.NewAuthHandler(d.Sessions)
	workspaceHandler := handlers.NewWorkspaceHandler(d.Workspaces, d.Audit)
	executionHandler := handlers.NewExecutionHandler(d.Executions)
	memoryHandler := handlers.NewMemoryHandler(d.Memory)

	apiKeys := auth.NewAPIKeyMiddleware(d.DB, d.APIKeyHeader)
	sessions := auth.NewSessionMiddleware(d.DB)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints.
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/signin", authHandler.SignIn)
		r.Post("/auth/workos", authHandler.SignInWithWorkOS)

		// Everything else requires an identity: API key first, session
		// token as fallback.
		r.Group(func(r chi.Router) {
			r.Use(apiKeys.Authenticate)
			r.Use(sessions.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/signout", authHandler.SignOut)
			r.Post("/auth/refresh", authHandler.RefreshSession)

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspaceHandler.List)
				r.Post("/", workspaceHandler.Create)
				r.Get("/slug/{slug}", workspaceHandler.GetBySlug)
				r.Patch("/{id}", workspaceHandler.Update)
				r.Delete("/{id}", workspaceHandler.Delete)
				r.Get("/{id}/stats", workspaceHandler.Stats)
				r.Post("/{id}/members", workspaceHandler.AddMember)
				r.Get("/{id}/activity", workspaceHandler.Activity)
			})

			r.Route("/executions", func(r chi.Router) {
				r.Get("/", executionHandler.List)
				r.Post("/", executionHandler.Create)
				r.Get("/{id}", executionHandler.Get)
				r.Post("/{id}/cancel", executionHandler.Cancel)
				r.Get("/{id}/logs", executionHandler.Logs)
			})

			r.Route("/memory", func(r chi.Router) {
				r.Get("/search", memoryHandler.Search)
				r.Post("/", memoryHandler.Store)
				r.Get("/query", memoryHandler.Query)
				r.Get("/namespaces", memoryHandler.Namespaces)
				r.Delete("/{id}", memoryHandler.Delete)
			})
		})
	})

	return r
}
