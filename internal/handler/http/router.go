package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-sync-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-sync-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

type RouterOptions struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, authService auth.AuthService, authHandler AuthHandler, syncHandler SyncHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.AppName),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)

	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))

	r.NotFound(notFound)
	r.Get("/", syncHandler.Status)

	authRequired := func(r chi.Router) {
		r.Use(middleware.AuthRequired(authService, JWTService))
	}

	// Paths served before the versioned API existed.
	r.Group(func(r chi.Router) {
		authRequired(r)
		r.Get("/sync", syncHandler.LegacySync)
		r.Get("/fetch-adjusted", syncHandler.LegacyFetchAdjusted)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", authHandler.IssueToken)

		// Requires authentication
		r.Group(func(r chi.Router) {
			authRequired(r)

			r.Route("/sync", func(r chi.Router) {
				r.Post("/", syncHandler.Run)
				r.Get("/", syncHandler.Run)
				r.Get("/status", syncHandler.LastReport)
			})
			r.Get("/adjusted/unfetched", syncHandler.ListUnfetched)
		})
	})

	return r
}

// notFound keeps unknown paths inside the JSON envelope.
func notFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, "Route not found")
}
