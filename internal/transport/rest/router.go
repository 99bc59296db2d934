package rest

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ShashankAtmakur/survey-management-system/internal/monitoring"
	"github.com/ShashankAtmakur/survey-management-system/internal/service"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest/handler"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/rest/middleware"
	"github.com/ShashankAtmakur/survey-management-system/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService      *service.AuthService
	SurveyService    *service.SurveyService
	ResponseService  *service.ResponseService
	AnalyticsService *service.AnalyticsService
	GeneratorService *service.GeneratorService
	WSHub            *ws.Hub
	Metrics          *monitoring.Metrics        // optional
	SubmitLimiter    *middleware.RateLimiter    // optional
	TrustedProxies   *middleware.TrustedProxies // nil trusts no proxy headers
	AllowedOrigins   []string
	Log              *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	surveyHandler := handler.NewSurveyHandler(c.SurveyService, c.AnalyticsService, c.Log)
	responseHandler := handler.NewResponseHandler(c.ResponseService, c.Log)
	generateHandler := handler.NewGenerateHandler(c.GeneratorService, c.Log)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))
	r.Use(c.TrustedProxies.RealIP)
	if c.Metrics != nil {
		r.Use(c.Metrics.Middleware)
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	respondent := api.NewRoute().Subrouter()
	respondent.Use(authMW.OptionalOwner)
	respondent.HandleFunc("/surveys/{id}", surveyHandler.Get).Methods("GET", "OPTIONS")

	submit := http.Handler(http.HandlerFunc(responseHandler.Submit))
	if c.SubmitLimiter != nil {
		submit = c.SubmitLimiter.Limit(submit)
	}
	api.Handle("/surveys/{id}/responses", submit).Methods("POST", "OPTIONS")

	// WebSocket routes (owner token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SurveyService, c.AnalyticsService, c.AllowedOrigins, c.Log)
		api.HandleFunc("/ws/surveys/{id}", wsHandler.SurveyWS).Methods("GET")
	}

	// Owner routes
	owner := api.NewRoute().Subrouter()
	owner.Use(authMW.RequireOwner)

	owner.HandleFunc("/surveys", surveyHandler.List).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys", surveyHandler.Create).Methods("POST", "OPTIONS")
	owner.HandleFunc("/surveys/{id}", surveyHandler.Update).Methods("PUT", "OPTIONS")
	owner.HandleFunc("/surveys/{id}", surveyHandler.Delete).Methods("DELETE", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/stats", surveyHandler.Stats).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/summary", surveyHandler.Summary).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/analytics", surveyHandler.Analytics).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/responses", responseHandler.List).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/responses/export", responseHandler.Export).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/responses/{rid}", responseHandler.Get).Methods("GET", "OPTIONS")
	owner.HandleFunc("/surveys/{id}/responses/{rid}", responseHandler.Delete).Methods("DELETE", "OPTIONS")
	owner.HandleFunc("/generate-questions", generateHandler.Generate).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	wildcard := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization"}, ", "))

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
