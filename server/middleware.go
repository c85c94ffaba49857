package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bargain-hunter/utils"
)

// Methods and request headers the search API accepts from browsers.
// Traceparent lets a frontend continue its own trace into the API.
var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsHeaders = []string{"Content-Type", "Traceparent", "Tracestate"}
)

const corsMaxAge = 10 * time.Minute

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that mw[0] sees the request first.
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := range mw {
		h = mw[len(mw)-1-i](h)
	}
	return h
}

// trackedResponse remembers the status and body size a handler produced.
type trackedResponse struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *trackedResponse) WriteHeader(code int) {
	if t.status == 0 {
		t.status = code
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackedResponse) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	n, err := t.ResponseWriter.Write(b)
	t.bytes += n
	return n, err
}

// RequestLogger logs each request once it has been answered. Health checks
// are logged at debug level so load balancer checks stay out of the info log.
func RequestLogger(logger *utils.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tr := &trackedResponse{ResponseWriter: w}
			next.ServeHTTP(tr, r)
			if tr.status == 0 {
				tr.status = http.StatusOK
			}

			log := logger.Info
			if r.URL.Path == "/api/health" {
				log = logger.Debug
			}
			log("[http] %s %s → %d, %dB in %v", r.Method, r.URL.Path, tr.status, tr.bytes, time.Since(start))
		})
	}
}

// Recover answers a panicking handler with the API's 500 error body.
func Recover(logger *utils.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("[http] Panic recovered on %s %s: %v", r.Method, r.URL.Path, p)
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS allows browser clients on origin ("*" for any) to call the API.
// OPTIONS requests are answered here and never reach the mux.
func CORS(origin string) Middleware {
	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// OTel starts a server span per request, named after the method and path,
// and picks up any trace context the caller propagated.
func OTel(service string) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}
