package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Pinger reports database reachability for /readyz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Handlers   *Handlers
	Gate       *Gate
	DB         Pinger
	CORSOrigin string

	// AuthLimit and AuthBurst throttle login, register and refresh per IP.
	// A zero AuthLimit disables throttling.
	AuthLimit rate.Limit
	AuthBurst int

	// TrustedProxies may set X-Forwarded-For for the limiter.
	TrustedProxies []string
	Logger         logging.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	metrics := NewMetrics()
	r.Use(metrics.Instrument)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, nil, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyz(cfg.DB)).Methods(http.MethodGet)

	h := cfg.Handlers
	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.AuthLimit > 0 {
		throttle = NewIPRateLimiter(cfg.AuthLimit, cfg.AuthBurst, cfg.TrustedProxies...).Middleware
	}
	jsonBody := func(fn http.HandlerFunc) http.Handler { return MaxBodyBytes(maxJSONBody, fn) }
	fileBody := func(fn http.HandlerFunc) http.Handler { return MaxBodyBytes(maxMultipartBody, fn) }
	gated := cfg.Gate.Middleware

	api := r.PathPrefix("/api/v1/users").Subrouter()

	api.Handle("/register", throttle(fileBody(h.Register))).Methods(http.MethodPost)
	api.Handle("/login", throttle(jsonBody(h.Login))).Methods(http.MethodPost)
	api.Handle("/refresh-token", throttle(jsonBody(h.RefreshToken))).Methods(http.MethodPost)

	api.Handle("/logout", gated(jsonBody(h.Logout))).Methods(http.MethodPost)
	api.Handle("/change-password", gated(jsonBody(h.ChangePassword))).Methods(http.MethodPost)
	api.Handle("/current-user", gated(http.HandlerFunc(h.CurrentUser))).Methods(http.MethodGet)
	api.Handle("/update-account", gated(jsonBody(h.UpdateAccount))).Methods(http.MethodPatch)
	api.Handle("/avatar", gated(fileBody(h.UpdateAvatar))).Methods(http.MethodPatch)
	api.Handle("/cover-image", gated(fileBody(h.UpdateCoverImage))).Methods(http.MethodPatch)
	api.Handle("/c/{username}", gated(http.HandlerFunc(h.ChannelProfile))).Methods(http.MethodGet)
	api.Handle("/history", gated(http.HandlerFunc(h.WatchHistory))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	var root http.Handler = r
	root = CORS(cfg.CORSOrigin)(root)
	root = Logging(cfg.Logger)(root)
	root = Recover(cfg.Logger)(root)
	return root
}

func readyz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeFailure(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		writeSuccess(w, http.StatusOK, nil, "OK")
	}
}
