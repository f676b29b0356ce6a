package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/studiocontext"
	"github.com/photoproof/photoproof-backend/internal/utils"
)

const (
	StudioIDHeader   = "X-Studio-ID"
	StudioNameHeader = "X-Studio-Name"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithStack(err).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler records the duration of every request, labeled by route pattern and status.
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HTTPRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHTTPRequestDuration(duration, labels)
			if err != nil {
				log.Ctx(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		c := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			ExposedHeaders: []string{StudioIDHeader, StudioNameHeader},
		})

		return c.Handler(next)
	}
}

// LoggingMiddleware logs the start and the end of every request. Requests resolved to a studio carry the studio ID and
// name in every log line of the request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

		reqCtx := req.Context()
		logFields := log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    chimiddleware.GetReqID(reqCtx),
		}
		if studio, err := studiocontext.RequireStudio(reqCtx); err == nil {
			logFields["studio_id"] = studio.ID
			logFields["studio_name"] = studio.Name
		}
		req = req.WithContext(log.Set(reqCtx, log.Ctx(reqCtx).WithFields(logFields)))

		logRequestStart(req)
		started := time.Now()

		next.ServeHTTP(mw, req)
		logRequestEnd(req, mw, time.Since(started))
	})
}

func logRequestStart(req *http.Request) {
	log.Ctx(req.Context()).WithFields(log.F{
		"subsys":    "http",
		"ip":        req.RemoteAddr,
		"host":      req.Host,
		"useragent": req.Header.Get("User-Agent"),
	}).Info("starting request")
}

func logRequestEnd(req *http.Request, mw chimiddleware.WrapResponseWriter, duration time.Duration) {
	l := log.Ctx(req.Context()).WithFields(log.F{
		"subsys":   "http",
		"status":   mw.Status(),
		"bytes":    mw.BytesWritten(),
		"duration": duration,
	})
	if routeContext := chi.RouteContext(req.Context()); routeContext != nil {
		l = l.WithField("route", routeContext.RoutePattern())
	}

	l.Info("finished request")
}

// BasicAuthMiddleware protects the admin API with a single account and API key.
func BasicAuthMiddleware(adminAccount, adminAPIKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if adminAccount == "" || adminAPIKey == "" {
				httperror.InternalError(ctx, "Admin account and API key are not set", nil, nil).Render(rw)
				return
			}

			accountUserName, apiKey, ok := req.BasicAuth()
			if !ok {
				httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			// Using constant time comparison to avoid timing attacks
			if accountUserName != adminAccount || subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminAPIKey)) != 1 {
				httperror.Unauthorized("", nil, nil).WithErrorCode(httperror.Code401_0).Render(rw)
				return
			}

			log.Ctx(ctx).Infof("[AdminAuth] - Admin authenticated with account %s", adminAccount)
			next.ServeHTTP(rw, req)
		})
	}
}

// RateLimitExceededHandler renders the 429 response of rate limited routes.
func RateLimitExceededHandler(rw http.ResponseWriter, _ *http.Request) {
	httperror.TooManyRequests("", nil, nil).Render(rw)
}

func bearerToken(req *http.Request) (string, bool) {
	authHeader := req.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
