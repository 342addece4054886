package endpoint

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"

	"github.com/capstone/board-back/pkg/boardservice"
)

// JsonContentType is the MIME type of JSON requests/responses
const JsonContentType = "application/json"

// RequestIDHeader carries the ID assigned to each request.
const RequestIDHeader = "X-Request-Id"

type contextKey int

const identityKey contextKey = iota

type capturingResponseWriter struct {
	w    http.ResponseWriter
	code int
}

var _ http.ResponseWriter = &capturingResponseWriter{}

func (c *capturingResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *capturingResponseWriter) Write(data []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}

	return c.w.Write(data)
}

func (c *capturingResponseWriter) WriteHeader(statusCode int) {
	if c.code == 0 {
		c.code = statusCode
	}

	c.w.WriteHeader(statusCode)
}

// WithLogging wraps a http.Handler, writing a log message to the given logger
// at the end of each request with the URL, returned status code, elapsed time
// etc. Each request gets an ID, sent back in the X-Request-Id header.
func WithLogging(logger log.Logger, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := capturingResponseWriter{w: w}
		requestID := uuid.NewV4().String()

		w.Header().Set(RequestIDHeader, requestID)

		defer func(start time.Time) {
			logger.Log(
				"event", "api_request",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.String(),
				"status", writer.code,
				"elapsed", time.Since(start),
			)
		}(time.Now())

		handler.ServeHTTP(&writer, r)
	})
}

// Metrics holds the Prometheus collectors updated by WithMetrics.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// NewMetrics creates the HTTP metrics and registers them on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
	}

	registerer.MustRegister(m.requestsTotal, m.requestDuration, m.requestsInFlight)

	return m
}

// WithMetrics wraps a http.Handler, recording its requests in m. Requests are
// labelled with the route template rather than the URL, to keep the number of
// series bounded.
func WithMetrics(m *Metrics, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		writer := capturingResponseWriter{w: w}
		handler.ServeHTTP(&writer, r)

		path := r.URL.Path

		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}

		status := writer.code

		if status == 0 {
			status = http.StatusOK
		}

		m.requestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// WithContentType wraps a http.Handler, rejecting requests that don't have the
// given media type. Parameters such as charset are ignored.
func WithContentType(contentType string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))

		if err != nil || mediaType != contentType {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, "Invalid content type")
			return
		}

		handler.ServeHTTP(w, r)
	})
}

// WriteError write the given error to the ResponseWriter, using the
// appropriate HTTP status code depending on the kind of user error, or 500
// for internal errors.
func WriteError(w http.ResponseWriter, err error) {
	userError := boardservice.UserError(err)

	switch boardservice.Kind(err) {
	case boardservice.KindNotFound:
		w.WriteHeader(http.StatusNotFound)
	case boardservice.KindForbidden:
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, userError.Error())
	case boardservice.KindInvalid:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, userError.Error())
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// RequestAuthenticator is a common interface to all HTTP request authentication
// functions.
type RequestAuthenticator interface {
	// Authenticate returns the identity (email) of the user and true if and
	// only if the request has valid credentials.
	Authenticate(r *http.Request) (string, bool, error)
}

// WithAuthentication wraps an http.Handler, rejecting requests that don't get a
// valid result from the given authenticator. The authenticated identity is
// available to the handler through Identity.
func WithAuthentication(authenticator RequestAuthenticator, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok, err := authenticator.Authenticate(r)

		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

// Identity returns the identity set by WithAuthentication, or an empty string.
func Identity(r *http.Request) string {
	identity, _ := r.Context().Value(identityKey).(string)
	return identity
}

// BasicAuthenticator uses HTTP Basic Auth to authenticate requests. The user
// name is the email of the user.
type BasicAuthenticator struct {
	// Users maps emails to password
	//
	// Because BasicAuthenticator does not implement any locking, this map
	// shouldn't be modified once the HTTP handler starts handling requests.
	Users map[string]string
}

func (a *BasicAuthenticator) Authenticate(r *http.Request) (string, bool, error) {
	username, password, ok := r.BasicAuth()

	if !ok {
		return "", false, nil
	}

	if realPassword, knownUser := a.Users[username]; !knownUser || password != realPassword {
		return "", false, nil
	}

	return username, true, nil
}
