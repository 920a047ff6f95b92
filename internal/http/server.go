package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/applications"
	"github.com/hackutd/harp-sub001/internal/auth"
	"github.com/hackutd/harp-sub001/internal/checkin"
	"github.com/hackutd/harp-sub001/internal/config"
	"github.com/hackutd/harp-sub001/internal/mailer"
	"github.com/hackutd/harp-sub001/internal/metrics"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/notify"
	"github.com/hackutd/harp-sub001/internal/ratelimit"
	"github.com/hackutd/harp-sub001/internal/refresh"
	"github.com/hackutd/harp-sub001/internal/settings"
	"github.com/hackutd/harp-sub001/internal/store"
	"github.com/hackutd/harp-sub001/internal/wizard"
)

type ApplicationQueries interface {
	List(ctx context.Context, filters store.ApplicationListFilters, cursor *store.ApplicationCursor, direction store.PaginationDirection, limit int) (*store.ApplicationListResult, error)
	GetStats(ctx context.Context) (*store.ApplicationStats, error)
	GetEmailsByStatus(ctx context.Context, status model.ApplicationStatus) ([]store.UserEmailInfo, error)
}

type SettingsStore interface {
	settings.Store
	UpdateShortAnswerQuestions(ctx context.Context, questions []model.ShortAnswerQuestion) error
	SetReviewsPerApplication(ctx context.Context, value int) error
	UpdateScanTypes(ctx context.Context, scanTypes []model.ScanType) error
}

type UserStore interface {
	auth.UserStore
	GetByEmails(ctx context.Context, emails []string) ([]model.User, error)
}

type ScanQueries interface {
	GetByUserID(ctx context.Context, userID string) ([]model.Scan, error)
	GetStats(ctx context.Context) ([]model.ScanStat, error)
}

type ReviewStore interface {
	SubmitVote(ctx context.Context, reviewID, adminID string, vote model.ReviewVote, notes *string) (*model.Review, error)
	GetPendingByAdminID(ctx context.Context, adminID string) ([]model.ReviewWithApplicant, error)
	GetCompletedByAdminID(ctx context.Context, adminID string) ([]model.ReviewWithApplicant, error)
	GetNotesByApplicationID(ctx context.Context, applicationID string) ([]store.ReviewNote, error)
	AssignNextForAdmin(ctx context.Context, adminID string, reviewsPerApp int) (*model.Review, error)
	BatchAssign(ctx context.Context, reviewsPerApp int) (*store.BatchAssignmentResult, error)
}

// Deps are the collaborators the server routes to. Limiter and Metrics may be
// nil.
type Deps struct {
	Config       config.Config
	Log          *logrus.Entry
	Verifier     *auth.Verifier
	Users        UserStore
	Applications *applications.Service
	CheckIn      *checkin.Service
	Scans        ScanQueries
	Queries      ApplicationQueries
	Settings     SettingsStore
	Reviews      ReviewStore
	Wizards      *wizard.Registry
	Signal       *refresh.Signal
	Notices      *notify.Center
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Metrics
	Mailer       mailer.Client
}

type Server struct {
	cfg       config.Config
	log       *logrus.Entry
	verifier  *auth.Verifier
	users     UserStore
	apps      *applications.Service
	checkin   *checkin.Service
	scans     ScanQueries
	queries   ApplicationQueries
	settings  SettingsStore
	panels    *settings.Panels
	reviews   ReviewStore
	wizards   *wizard.Registry
	signal    *refresh.Signal
	notices   *notify.Center
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	mailer    mailer.Client
	validate  *validator.Validate
	heartbeat time.Duration
}

func NewServer(deps Deps) *Server {
	return &Server{
		cfg:       deps.Config,
		log:       deps.Log,
		verifier:  deps.Verifier,
		users:     deps.Users,
		apps:      deps.Applications,
		checkin:   deps.CheckIn,
		scans:     deps.Scans,
		queries:   deps.Queries,
		settings:  deps.Settings,
		panels:    settings.NewPanels(deps.Settings),
		reviews:   deps.Reviews,
		wizards:   deps.Wizards,
		signal:    deps.Signal,
		notices:   deps.Notices,
		limiter:   deps.Limiter,
		metrics:   deps.Metrics,
		mailer:    deps.Mailer,
		validate:  wizard.NewValidator(),
		heartbeat: 25 * time.Second,
	}
}

// HTTPServer wraps the router in an http.Server whose request contexts derive
// from ctx, so cancelling ctx also ends long-lived streams before Shutdown
// waits on them.
func (s *Server) HTTPServer(ctx context.Context, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.With(s.rateLimit).Get("/auth/check-email", s.handleCheckEmail)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/auth/me", s.handleGetMe)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/events/refresh", s.handleRefreshEvents)

		r.Route("/applications/me", func(r chi.Router) {
			r.Get("/", s.handleGetOrCreateApplication)
			r.With(s.rateLimit).Patch("/", s.handleUpdateApplication)
			r.With(s.rateLimit).Post("/submit", s.handleSubmitApplication)

			r.Route("/wizard", func(r chi.Router) {
				r.Get("/", s.handleWizardState)
				r.Delete("/", s.handleWizardDiscard)
				r.Post("/next", s.handleWizardNext)
				r.Post("/back", s.handleWizardBack)
				r.Post("/retry", s.handleWizardRetry)
				r.With(s.rateLimit).Post("/submit", s.handleWizardSubmit)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.RoleAdmin))

			r.Get("/applications", s.handleListApplications)
			r.Get("/applications/stats", s.handleApplicationStats)
			r.Get("/applications/{applicationID}", s.handleGetApplication)
			r.Get("/applications/{applicationID}/detail", s.handleApplicationDetailHTML)
			r.With(requireRole(model.RoleSuperAdmin)).Patch("/applications/{applicationID}/status", s.handleSetApplicationStatus)

			r.Get("/reviews/pending", s.handlePendingReviews)
			r.Get("/reviews/completed", s.handleCompletedReviews)
			r.Post("/reviews/next", s.handleAssignNextReview)
			r.Put("/reviews/{reviewID}", s.handleSubmitVote)

			r.Get("/scans/types", s.handleGetScanTypes)
			r.Post("/scans", s.handleCreateScan)
			r.Get("/scans/users/{userID}", s.handleGetUserScans)
			r.Get("/scans/stats", s.handleScanStats)
		})

		r.Route("/superadmin", func(r chi.Router) {
			r.Use(requireRole(model.RoleSuperAdmin))

			r.Get("/settings/questions", s.handleGetQuestions)
			r.Put("/settings/questions", s.handleUpdateQuestions)
			r.Get("/settings/reviews-per-app", s.handleGetReviewsPerApp)
			r.Put("/settings/reviews-per-app", s.handleSetReviewsPerApp)
			r.Get("/tabs", s.handleGetTabs)
			r.Put("/settings/scan-types", s.handleUpdateScanTypes)
			r.Put("/tabs/{tab}/{toggle}", s.handleSetToggle)
			r.Post("/users/search", s.handleSearchUsers)
			r.Post("/reviews/assign", s.handleBatchAssign)
			r.Post("/emails/qr", s.handleSendQREmails)
		})
	})

	return r
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

// serverError logs err and answers with a generic 500. Cancelled requests are
// not worth an error log.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	entry := s.log.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
	})
	if errors.Is(err, context.Canceled) {
		entry.Debug("request cancelled")
	} else {
		entry.WithError(err).Error("internal error")
	}
	writeError(w, http.StatusInternalServerError, "server_error")
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// uuidParam reads a UUID path parameter; rows are keyed by UUID so anything
// else cannot match one.
func uuidParam(r *http.Request, name string) (string, bool) {
	parsed, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

type fieldErrorResponse struct {
	Error  string            `json:"error"`
	Step   *wizard.Step      `json:"step,omitempty"`
	Fields map[string]string `json:"fields"`
}

func writeFieldErrors(w http.ResponseWriter, step *wizard.Step, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, fieldErrorResponse{Error: "validation_failed", Step: step, Fields: fields})
}
