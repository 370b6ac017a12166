package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Metrics        http.Handler
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	memorandumHandler MemorandumHandler,
	referenceHandler ReferenceHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	authenticated := func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired)
		r.Use(middleware.RequirePrincipal)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/memoranda", func(r chi.Router) {
			// Browsers cannot set headers on an EventSource, so the stream
			// authenticates with a stream token in the query string.
			r.Get("/stream", streamHandler.Stream)

			// Requires authentication
			r.Group(func(r chi.Router) {
				authenticated(r)

				r.Post("/stream/token", streamHandler.IssueToken)

				r.With(middleware.RequirePermission(user.PermissionMemorandumViewAll)).Get("/", memorandumHandler.ListForAdmin)
				r.With(middleware.RequirePermission(user.PermissionMemorandumViewOwn)).Get("/my", memorandumHandler.ListMine)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", memorandumHandler.Get)
					r.Get("/history", memorandumHandler.History)
					r.Get("/document", memorandumHandler.Document)

					r.With(middleware.RequirePermission(user.PermissionMemorandumSubsanate)).Post("/justification", memorandumHandler.SubmitJustification)

					// Reviewer only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionMemorandumReview))
						r.Post("/review", memorandumHandler.SubmitReview)
						r.Post("/justify-on-behalf", memorandumHandler.JustifyOnBehalf)
					})
					r.With(middleware.RequirePermission(user.PermissionMemorandumClose)).Post("/close", memorandumHandler.Close)
				})
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Get("/employees/{employeeID}/memoranda", memorandumHandler.ListForEmployee)

			r.Route("/reference", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionReferenceView))
				r.Get("/areas", referenceHandler.ListAreas)
				r.Get("/cargos", referenceHandler.ListCargos)
				r.Get("/employees", referenceHandler.ListEmployees)
			})
		})
	})
	return r
}
