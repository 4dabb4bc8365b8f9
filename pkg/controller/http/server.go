package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

const (
	defaultBodyLimit     = 10 << 20
	defaultRateRequests  = 100
	defaultRateWindow    = 15 * time.Minute
	serviceBannerMessage = "User Action Tracking System API"
)

type Server struct {
	router         *chi.Mux
	uc             *usecase.UseCases
	allowedOrigins []string
	rateRequests   int
	rateWindow     time.Duration
	bodyLimit      int64
	trustProxy     bool
}

type Options func(*Server)

// WithAllowedOrigins enables CORS for the given origins
func WithAllowedOrigins(origins []string) Options {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithRateLimit allows requests per window for each client address. A
// non-positive requests disables rate limiting.
func WithRateLimit(requests int, window time.Duration) Options {
	return func(s *Server) {
		s.rateRequests = requests
		s.rateWindow = window
	}
}

func WithBodyLimit(limit int64) Options {
	return func(s *Server) {
		s.bodyLimit = limit
	}
}

// WithTrustProxy takes the client address from X-Forwarded-For / X-Real-IP
func WithTrustProxy(enabled bool) Options {
	return func(s *Server) {
		s.trustProxy = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		rateRequests: defaultRateRequests,
		rateWindow:   defaultRateWindow,
		bodyLimit:    defaultBodyLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(bodyLimit(s.bodyLimit))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", bannerHandler())

	r.Route("/api", func(r chi.Router) {
		if s.rateRequests > 0 {
			r.Use(newIPRateLimiter(s.rateRequests, s.rateWindow).middleware)
		}

		r.Get("/health", healthHandler(uc))

		r.Route("/public", func(r chi.Router) {
			r.Get("/actions/overview", publicOverviewHandler(uc.Public))
			r.Get("/stats", publicStatsHandler(uc.Public))
		})

		// Routes below need a token issuer
		if uc.Auth == nil {
			return
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authLoginHandler(uc.Auth))
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware(uc.Auth))
				r.Get("/profile", authProfileHandler(uc.User))
				r.Post("/logout", authLogoutHandler(uc.Auth))
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(authMiddleware(uc.Auth))
			r.Route("/actions", func(r chi.Router) {
				r.Post("/", createActionHandler(uc.Action))
				r.Get("/", listActionsHandler(uc.Action))
				r.Get("/stats", actionStatsHandler(uc.Action))
				r.Get("/{id}", getActionHandler(uc.Action))
				r.Put("/{id}", updateActionHandler(uc.Action))
				r.Delete("/{id}", deleteActionHandler(uc.Action))
			})
			r.Get("/action-plans", myPlansHandler(uc.Plan))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware(uc.Auth))
			r.Use(requireAdmin)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", createUserHandler(uc.User))
				r.Get("/", listUsersHandler(uc.User))
				r.Put("/{id}", updateUserHandler(uc.User))
				r.Delete("/{id}", deleteUserHandler(uc.User))
			})
			r.Get("/stats", systemStatsHandler(uc.User))

			r.Route("/action-plans", func(r chi.Router) {
				r.Post("/", createPlanHandler(uc.Plan))
				r.Get("/", listPlansHandler(uc.Plan))
				r.Get("/{id}", getPlanHandler(uc.Plan))
				r.Put("/{id}", updatePlanHandler(uc.Plan))
				r.Delete("/{id}", deletePlanHandler(uc.Plan))
			})
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func bannerHandler() http.HandlerFunc {
	type response struct {
		Success   bool              `json:"success"`
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	body := response{
		Success: true,
		Message: serviceBannerMessage,
		Version: "1.0.0",
		Endpoints: map[string]string{
			"health": "/api/health",
			"auth":   "/api/auth",
			"user":   "/api/user",
			"admin":  "/api/admin",
			"public": "/api/public",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, body)
	}
}

func healthHandler(uc *usecase.UseCases) http.HandlerFunc {
	type response struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, response{
			Success:   true,
			Message:   "Server is running",
			Timestamp: uc.Now(),
		})
	}
}
