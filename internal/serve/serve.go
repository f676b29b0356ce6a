package serve

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/auth"
	"github.com/photoproof/photoproof-backend/internal/crashtracker"
	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/serve/httphandler"
	"github.com/photoproof/photoproof-backend/internal/serve/middleware"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
)

const ServiceID = "serve"

const (
	checkDomainRateLimit = 30
	loginRateLimit       = 10
	publicRateWindow     = time.Minute
)

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment            string
	GitCommit              string
	Port                   int
	Version                string
	MonitorService         monitor.MonitorServiceInterface
	DBConnectionPool       db.DBConnectionPool
	PlatformDomain         string
	CorsAllowedOrigins     []string
	EC256PublicKey         string
	EC256PrivateKey        string
	ExemptPathPrefixes     []string
	EnableLocalFallback    bool
	LocalFallbackSubdomain string
	CrashTrackerClient     crashtracker.CrashTrackerClient
	// Resolver is shared with the admin server cache when set. Otherwise an uncached resolver is built over the
	// database.
	Resolver middleware.TenantResolver

	models        *data.Models
	studioManager *tenant.Manager
	jwtManager    *auth.JWTManager
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	if opts.CrashTrackerClient != nil {
		httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)
	}

	if opts.DBConnectionPool == nil {
		return errors.New("database connection pool cannot be nil")
	}

	var err error
	opts.models, err = data.NewModels(opts.DBConnectionPool)
	if err != nil {
		return fmt.Errorf("creating models for Serve: %w", err)
	}
	opts.studioManager = tenant.NewManager(
		tenant.WithDatabase(opts.DBConnectionPool),
		tenant.WithPlatformDomain(opts.PlatformDomain),
	)

	opts.jwtManager, err = auth.NewJWTManager(opts.EC256PublicKey, opts.EC256PrivateKey)
	if err != nil {
		return fmt.Errorf("creating JWT manager: %w", err)
	}

	if opts.Resolver == nil {
		opts.Resolver, err = tenant.NewResolver(tenant.ResolverOptions{
			Registry:               opts.studioManager,
			EnableLocalFallback:    opts.EnableLocalFallback,
			LocalFallbackSubdomain: opts.LocalFallbackSubdomain,
			MonitorService:         opts.MonitorService,
		})
		if err != nil {
			return fmt.Errorf("creating tenant resolver: %w", err)
		}
	}

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting PhotoProof Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			err := opts.DBConnectionPool.Close()
			if err != nil {
				log.Errorf("error closing database connection: %s", err.Error())
			}

			log.Info("Stopping PhotoProof Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	exemptPathPrefixes := o.ExemptPathPrefixes
	if len(exemptPathPrefixes) == 0 {
		exemptPathPrefixes = middleware.DefaultExemptPathPrefixes
	}

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.TenantResolutionMiddleware(o.Resolver, exemptPathPrefixes))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	if o.MonitorService != nil {
		mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	}

	mux.Get("/health", httphandler.HealthHandler{
		ReleaseID:        o.GitCommit,
		ServiceID:        ServiceID,
		Version:          o.Version,
		DBConnectionPool: o.DBConnectionPool,
	}.ServeHTTP)

	mux.With(httprate.Limit(
		checkDomainRateLimit,
		publicRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(middleware.RateLimitExceededHandler),
	)).Get("/api/check-domain", httphandler.CheckDomainHandler{Checker: o.studioManager}.ServeHTTP)

	// Token issuance is optional: deployments that only verify tokens minted elsewhere configure no private key.
	if o.jwtManager != nil && o.jwtManager.CanIssueTokens() {
		mux.With(httprate.Limit(
			loginRateLimit,
			publicRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(middleware.RateLimitExceededHandler),
		)).Post("/auth/token", httphandler.LoginHandler{
			Users:       o.models.Users,
			TokenIssuer: o.jwtManager,
		}.ServeHTTP)
	}

	// Tenant scoped routes
	mux.Group(func(r chi.Router) {
		r.Use(middleware.RequireTenantMiddleware)

		r.Get("/api/studio", httphandler.StudioHandler{Bindings: o.studioManager}.ServeHTTP)

		// Authenticated Routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateMiddleware(o.jwtManager))
			r.Use(middleware.EnforceSameTenantMiddleware)

			r.Get("/api/studio/features", httphandler.StudioFeaturesHandler{Features: o.models.Features}.ServeHTTP)
		})
	})

	return mux
}
