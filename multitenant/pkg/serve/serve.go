package serve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/serve/middleware"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/internal/httphandler"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
)

const (
	verificationCheckRateLimit  = 20
	verificationCheckRateWindow = time.Minute
)

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

// ResolutionCache is the cache in front of the public resolver. It is flushed after admin writes so that a change is
// visible to the public server without waiting for the TTL.
type ResolutionCache interface {
	Clear()
}

type ServeOptions struct {
	DBConnectionPool   db.DBConnectionPool
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	AdminAccount       string
	AdminAPIKey        string
	PlatformDomain     string
	CheckTimeout       time.Duration
	MonitorService     monitor.MonitorServiceInterface
	ResolutionCache    ResolutionCache
	VerificationEngine *verification.Engine

	studioStore tenant.Store
	onboarder   httphandler.StudioOnboarder
	features    httphandler.FeatureStore
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	if opts.DBConnectionPool == nil {
		return errors.New("database connection pool cannot be nil")
	}

	models, err := data.NewModels(opts.DBConnectionPool)
	if err != nil {
		return fmt.Errorf("creating models: %w", err)
	}
	opts.features = models.Features

	studioManager := tenant.NewManager(
		tenant.WithDatabase(opts.DBConnectionPool),
		tenant.WithPlatformDomain(opts.PlatformDomain),
	)
	opts.studioStore = studioManager

	opts.onboarder = provisioning.NewManager(
		provisioning.WithDatabase(opts.DBConnectionPool),
		provisioning.WithStudioManager(studioManager),
		provisioning.WithModels(models),
	)

	if opts.VerificationEngine == nil {
		opts.VerificationEngine, err = verification.NewEngine(verification.EngineOptions{
			Store:          studioManager,
			PlatformDomain: opts.PlatformDomain,
			CheckTimeout:   opts.CheckTimeout,
			ThrottleTTL:    verification.DefaultThrottleTTL,
			MonitorService: opts.MonitorService,
		})
		if err != nil {
			return fmt.Errorf("creating verification engine: %w", err)
		}
	}

	return nil
}

func StartServe(opts ServeOptions, httpServer HTTPServerInterface) error {
	if err := opts.SetupDependencies(); err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(&opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Admin Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the Admin Server database connection pool")
			err := db.CloseConnectionPoolIfNeeded(context.Background(), opts.DBConnectionPool)
			if err != nil {
				log.Errorf("error closing database connection: %v", err)
			}
			log.Info("Stopping Admin Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(opts *ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	if opts.MonitorService != nil {
		mux.Use(middleware.MetricsRequestHandler(opts.MonitorService))
	}

	mux.Get("/health", httphandler.HealthHandler{
		GitCommit: opts.GitCommit,
		Version:   opts.Version,
	}.ServeHTTP)

	// Authenticated Routes
	mux.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuthMiddleware(opts.AdminAccount, opts.AdminAPIKey))

		r.Route("/studios", func(r chi.Router) {
			studiosHandler := httphandler.StudiosHandler{
				Store:           opts.studioStore,
				Onboarder:       opts.onboarder,
				Features:        opts.features,
				ResolutionCache: opts.ResolutionCache,
			}
			r.Get("/", studiosHandler.GetAll)
			r.Post("/", studiosHandler.Post)
			r.Get("/{id}", studiosHandler.Get)
			r.Patch("/{id}", studiosHandler.Patch)
			r.Put("/{id}/features/{key}", studiosHandler.PutFeature)

			domainsHandler := httphandler.DomainsHandler{
				Store:           opts.studioStore,
				Features:        opts.features,
				Engine:          opts.VerificationEngine,
				ResolutionCache: opts.ResolutionCache,
			}
			r.Post("/{id}/domains", domainsHandler.Post)
		})

		r.Route("/domains/{id}", func(r chi.Router) {
			domainsHandler := httphandler.DomainsHandler{
				Store:           opts.studioStore,
				Features:        opts.features,
				Engine:          opts.VerificationEngine,
				ResolutionCache: opts.ResolutionCache,
			}
			r.Get("/", domainsHandler.Get)
			r.Delete("/", domainsHandler.Delete)

			r.Route("/verification", func(r chi.Router) {
				r.Post("/", domainsHandler.BeginVerification)
				r.Delete("/", domainsHandler.Revoke)
				r.Post("/force", domainsHandler.ForceVerify)
				// Every check performs DNS or HTTP lookups against hosts we do not control.
				r.With(httprate.Limit(
					verificationCheckRateLimit,
					verificationCheckRateWindow,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(middleware.RateLimitExceededHandler),
				)).Get("/", domainsHandler.CheckVerification)
			})
		})
	})

	return mux
}
