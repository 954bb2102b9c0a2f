package httpx

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// Defaults applied by NewRouter when ServerConfig leaves a limit at zero.
const (
	DefaultMaxBodyBytes   int64 = 64 << 10
	DefaultRateLimit            = 300
	DefaultHandlerTimeout       = 30 * time.Second
)

// SwaggerPrefix is the path the API docs UI is mounted under.
const SwaggerPrefix = "/swagger/"

const (
	apiCSP     = "default-src 'none'; frame-ancestors 'none'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
)

// ServerConfig holds the options for NewRouter.
type ServerConfig struct {
	ServiceName   string
	IsDevelopment bool
	// CORSAllowedOrigins is a comma-separated list of allowed origins.
	// Pass "*" (dev only) to allow all origins.
	CORSAllowedOrigins string
	// MaxBodyBytes caps catalog request bodies.
	MaxBodyBytes int64
	// RateLimit is requests per minute per client IP.
	RateLimit      int
	HandlerTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = DefaultHandlerTimeout
	}
	return c
}

// NewRouter returns a chi.Mux with the catalog API's middleware stack. Pass the
// logger, recovery, sentry and otel middlewares; they run before the chi
// built-ins.
//
// Middleware order (outermost → innermost):
//  1. recoveryMiddleware - catches panics that re-panic from sentry
//  2. sentryMiddleware   - captures panics, re-panics (Repanic: true)
//  3. RequestID          - unique X-Request-Id per request
//  4. otelMiddleware     - starts trace span per request
//  5. loggerMiddleware   - logs request + trace_id/span_id
//  6. RealIP             - sets RemoteAddr from X-Forwarded-For
//  7. RateLimit          - cfg.RateLimit req/min per IP
//  8. CORS               - cross-origin preflight and headers
//  9. BodyLimit          - cfg.MaxBodyBytes request body cap
//  10. Timeout           - cfg.HandlerTimeout handler deadline
//  11. SecurityHeaders   - JSON-only CSP for the API, a looser one for the docs UI
func NewRouter(
	cfg ServerConfig,
	loggerMiddleware func(http.Handler) http.Handler,
	recoveryMiddleware func(http.Handler) http.Handler,
	sentryMiddleware func(http.Handler) http.Handler,
	otelMiddleware func(http.Handler) http.Handler,
) *chi.Mux {
	cfg = cfg.withDefaults()

	r := chi.NewRouter()
	r.Use(
		recoveryMiddleware,
		sentryMiddleware,
		middleware.RequestID,
		otelMiddleware,
		loggerMiddleware,
		middleware.RealIP,
		httprate.LimitByIP(cfg.RateLimit, time.Minute),
		CORSMiddleware(cfg.CORSAllowedOrigins),
		RequestBodyLimit(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.HandlerTimeout),
		SecurityHeaders(cfg.IsDevelopment),
	)
	return r
}

// SecurityHeaders sets HSTS, frame and sniffing headers on every response.
// The API only ever returns JSON, so its CSP allows nothing; the swagger UI
// under SwaggerPrefix needs its inline bootstrap script and styles.
func SecurityHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	opts := secure.Options{
		STSSeconds:           63072000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		ReferrerPolicy:       "no-referrer",
		PermissionsPolicy:    "geolocation=(), microphone=(), camera=(), usb=(), payment=()",
		IsDevelopment:        isDevelopment,
	}
	opts.ContentSecurityPolicy = apiCSP
	api := secure.New(opts)
	opts.ContentSecurityPolicy = swaggerCSP
	docs := secure.New(opts)

	return func(next http.Handler) http.Handler {
		apiHandler := api.Handler(next)
		docsHandler := docs.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, SwaggerPrefix) {
				docsHandler.ServeHTTP(w, r)
				return
			}
			apiHandler.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware returns a CORS handler restricted to the given allowed origins.
// allowedOrigins is a comma-separated list (e.g. "https://shop.example.com,http://localhost:3000").
// Pass "*" to allow all origins (development only).
//
// The workspace session travels in a cookie, so credentials are allowed for an
// explicit origin list. Browsers reject credentials combined with "*".
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	origins := parseOrigins(allowedOrigins)
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           300,
	})
}

func parseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p := strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RequestBodyLimit caps the request body at maxBytes. A declared
// Content-Length over the cap is refused with 413 before the handler runs;
// otherwise reads past the cap fail with *http.MaxBytesError, which
// validator.ValidateRequest turns into a 413.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				JSONError(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewServer returns an *http.Server whose write deadline leaves room for the
// handler timeout.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      DefaultHandlerTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}
