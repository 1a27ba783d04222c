// package http implements the HTTP transport layer for the router.
// It handles incoming requests, decodes them, calls the appropriate service methods,
// and encodes the responses.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/YusovID/onetalk-router/internal/validation"
	"github.com/YusovID/onetalk-router/pkg/logger/sl"
	"github.com/YusovID/onetalk-router/swagger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error codes of the JSON error envelope.
const (
	codeInvalidRequest  = "INVALID_REQUEST"
	codeValidation      = "VALIDATION_FAILED"
	codeNotFound        = "NOT_FOUND"
	codeDuplicateNumber = "DUPLICATE_NUMBER"
	codeNotACall        = "NOT_A_CALL"
	codeNoLine          = "NO_AVAILABLE_LINE"
	codeNoUser          = "NO_AVAILABLE_USER"
	codeRateLimited     = "RATE_LIMITED"
	codeInternal        = "INTERNAL"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Phones     service.PhoneService
	Directory  service.DirectoryService
	Rules      service.RuleService
	Dispatcher service.Dispatcher
	Stats      service.StatsService
}

// Options configures the cross-cutting middleware of the server.
type Options struct {
	AllowedOrigins []string
	// RateLimitRPS disables per-IP rate limiting when zero.
	RateLimitRPS   float64
	RateLimitBurst int
	// Live is mounted at /ws/communications when set.
	Live http.Handler
}

// Server holds the dependencies for the HTTP server, including the logger and service interfaces.
type Server struct {
	log        *slog.Logger
	phones     service.PhoneService
	directory  service.DirectoryService
	rules      service.RuleService
	dispatcher service.Dispatcher
	stats      service.StatsService
	opts       Options
	limiter    *ipRateLimiter
}

// NewServer creates a new instance of the HTTP server.
func NewServer(log *slog.Logger, svc Services, opts Options) *Server {
	s := &Server{
		log:        log,
		phones:     svc.Phones,
		directory:  svc.Directory,
		rules:      svc.Rules,
		dispatcher: svc.Dispatcher,
		stats:      svc.Stats,
		opts:       opts,
	}

	if opts.RateLimitRPS > 0 {
		s.limiter = newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	return s
}

// Close releases background resources held by the middleware.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Routes sets up the router with all middleware and API endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	swaggerHandler, err := swagger.GetHandler()
	if err != nil {
		s.log.Error("failed to get swagger handler", sl.Err(err))
	} else {
		mux.Mount("/swagger", http.StripPrefix("/swagger", swaggerHandler))
	}

	mux.Handle("/metrics", promhttp.Handler())

	if s.opts.Live != nil {
		mux.Handle("/ws/communications", s.opts.Live)
	}

	mux.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimit)
		}

		r.Route("/phones", func(r chi.Router) {
			r.Post("/register", s.PostPhonesRegister)
			r.Get("/available", s.GetPhonesAvailable)
			r.Post("/assign", s.PostPhonesAssign)
			r.Post("/setStatus", s.PostPhonesSetStatus)
			r.Get("/status", s.GetPhonesStatus)
		})

		r.Route("/departments", func(r chi.Router) {
			r.Post("/add", s.PostDepartmentsAdd)
			r.Get("/status", s.GetDepartmentsStatus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/add", s.PostUsersAdd)
			r.Post("/setStatus", s.PostUsersSetStatus)
			r.Get("/available", s.GetUsersAvailable)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Post("/add", s.PostRulesAdd)
			r.Get("/list", s.GetRulesList)
			r.Post("/setActive", s.PostRulesSetActive)
		})

		r.Route("/communications", func(r chi.Router) {
			r.Post("/inbound", s.PostCommunicationsInbound)
			r.Post("/endCall", s.PostCommunicationsEndCall)
			r.Get("/get", s.GetCommunicationsGet)
		})

		r.Get("/stats/daily", s.GetStatsDaily)
	})

	return mux
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError sends the structured error envelope.
func (s *Server) respondError(w http.ResponseWriter, code int, errCode, message string) {
	s.respond(w, code, errorResponse{Error: errorBody{Code: errCode, Message: message}})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := s.decode(r.Body, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(body io.ReadCloser, v interface{}) error {
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a user-friendly HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", getRequestID(r.Context())))

	var (
		validationErr *validation.ValidationError
		duplicateErr  *apperrors.DuplicateNumberError
		persistErr    *apperrors.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn("request rejected", sl.Err(err))
		wrappedErr := fmt.Errorf("%w: %s", apperrors.ErrValidation, validationErr.Error())
		s.respondError(w, http.StatusBadRequest, codeValidation, wrappedErr.Error())
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.As(err, &persistErr):
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	case errors.As(err, &duplicateErr):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusConflict, codeDuplicateNumber, duplicateErr.Error())
	case errors.Is(err, apperrors.ErrNotACall):
		log.Warn("request rejected", sl.Err(err))
		s.respondError(w, http.StatusConflict, codeNotACall, apperrors.ErrNotACall.Error())
	case errors.Is(err, apperrors.ErrNoAvailableLine):
		s.respondError(w, http.StatusNotFound, codeNoLine, apperrors.ErrNoAvailableLine.Error())
	case errors.Is(err, apperrors.ErrNoAvailableUser):
		s.respondError(w, http.StatusNotFound, codeNoUser, apperrors.ErrNoAvailableUser.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, codeNotFound, apperrors.ErrNotFound.Error())
	default:
		log.Error("service error occurred", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
