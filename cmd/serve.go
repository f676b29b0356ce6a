package cmd

import (
	"context"
	"fmt"
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/photoproof/photoproof-backend/cmd/utils"
	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/crashtracker"
	"github.com/photoproof/photoproof-backend/internal/monitor"
	"github.com/photoproof/photoproof-backend/internal/scheduler"
	"github.com/photoproof/photoproof-backend/internal/scheduler/jobs"
	"github.com/photoproof/photoproof-backend/internal/serve"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
	serveadmin "github.com/photoproof/photoproof-backend/multitenant/pkg/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
	StartAdminServe(opts serveadmin.ServeOptions, httpServer serveadmin.HTTPServerInterface)
	GetSchedulerJobRegistrars(ctx context.Context, jobOptions jobs.DomainVerificationJobOptions) []scheduler.SchedulerJobRegisterOption
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (s *ServerService) StartAdminServe(opts serveadmin.ServeOptions, httpServer serveadmin.HTTPServerInterface) {
	err := serveadmin.StartServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting admin server: %s", err.Error())
	}
}

func (s *ServerService) GetSchedulerJobRegistrars(_ context.Context, jobOptions jobs.DomainVerificationJobOptions) []scheduler.SchedulerJobRegisterOption {
	return []scheduler.SchedulerJobRegisterOption{
		scheduler.WithDomainVerificationJobOption(jobOptions),
	}
}

// serveDependencies are shared by the public server, the admin server and the scheduler.
type serveDependencies struct {
	dbConnectionPool   db.DBConnectionPool
	studioManager      *tenant.Manager
	resolver           *tenant.Resolver
	resolutionCache    *tenant.CachedRegistry
	verificationEngine *verification.Engine
}

func (d *serveDependencies) close(ctx context.Context) {
	if d.resolutionCache != nil {
		d.resolutionCache.Close()
	}
	if err := db.CloseConnectionPoolIfNeeded(ctx, d.dbConnectionPool); err != nil {
		log.Ctx(ctx).Errorf("closing database connection pool: %v", err)
	}
}

func setupServeDependencies(
	globalOptions cmdUtils.GlobalOptionsType,
	resolutionOptions cmdUtils.ResolutionOptions,
	verificationOptions cmdUtils.DomainVerificationOptions,
	monitorService monitor.MonitorServiceInterface,
) (*serveDependencies, error) {
	dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(globalOptions.DatabaseURL, monitorService)
	if err != nil {
		return nil, fmt.Errorf("opening database connection pool: %w", err)
	}
	deps := &serveDependencies{dbConnectionPool: dbConnectionPool}

	deps.studioManager = tenant.NewManager(
		tenant.WithDatabase(dbConnectionPool),
		tenant.WithPlatformDomain(globalOptions.PlatformDomain),
	)

	var registry tenant.Registry = deps.studioManager
	if ttl := resolutionOptions.ResolutionCacheTTL(); ttl > 0 {
		deps.resolutionCache, err = tenant.NewCachedRegistry(deps.studioManager, ttl)
		if err != nil {
			deps.close(context.Background())
			return nil, fmt.Errorf("creating resolution cache: %w", err)
		}
		registry = deps.resolutionCache
	}

	deps.resolver, err = tenant.NewResolver(tenant.ResolverOptions{
		Registry:               registry,
		EnableLocalFallback:    resolutionOptions.EnableLocalFallback,
		LocalFallbackSubdomain: resolutionOptions.LocalFallbackSubdomain,
		MonitorService:         monitorService,
	})
	if err != nil {
		deps.close(context.Background())
		return nil, fmt.Errorf("creating tenant resolver: %w", err)
	}

	deps.verificationEngine, err = verification.NewEngine(verification.EngineOptions{
		Store:          deps.studioManager,
		PlatformDomain: globalOptions.PlatformDomain,
		CheckTimeout:   verificationOptions.CheckTimeout(),
		ThrottleTTL:    verification.DefaultThrottleTTL,
		MonitorService: monitorService,
	})
	if err != nil {
		deps.close(context.Background())
		return nil, fmt.Errorf("creating verification engine: %w", err)
	}

	return deps, nil
}

// cache returns the resolution cache as an interface, keeping it nil when caching is disabled.
func (d *serveDependencies) cache() serveadmin.ResolutionCache {
	if d.resolutionCache == nil {
		return nil
	}
	return d.resolutionCache
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the public server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:           "ec256-public-key",
			Usage:          "The EC256 Public Key used to validate the token signature. This EC key needs to be at least as strong as prime256v1 (P-256).",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionEC256PublicKey,
			ConfigKey:      &serveOpts.EC256PublicKey,
			Required:       true,
		},
		{
			Name:           "ec256-private-key",
			Usage:          "The EC256 Private Key used to sign tokens in local setups. This EC key needs to be at least as strong as prime256v1 (P-256).",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionEC256PrivateKey,
			ConfigKey:      &serveOpts.EC256PrivateKey,
			Required:       false,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			Required:       true,
		},
	}

	// hostname resolution options
	resolutionOptions := cmdUtils.ResolutionOptions{}
	configOpts = append(configOpts, cmdUtils.ResolutionConfigOptions(&resolutionOptions)...)

	// custom domain verification options
	verificationOptions := cmdUtils.DomainVerificationOptions{}
	configOpts = append(configOpts, cmdUtils.DomainVerificationConfigOptions(&verificationOptions)...)

	// crash tracker options
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}
	configOpts = append(configOpts, cmdUtils.CrashTrackerTypeConfigOption(&crashTrackerOptions.CrashTrackerType))

	// admin server options
	adminServeOpts := serveadmin.ServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:        "admin-port",
			Usage:       "Port where the admin server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &adminServeOpts.Port,
			FlagDefault: 8003,
			Required:    true,
		},
		&config.ConfigOption{
			Name:      "admin-account",
			Usage:     "The account used in the basic authentication of the admin server",
			OptType:   types.String,
			ConfigKey: &adminServeOpts.AdminAccount,
			Required:  true,
		},
		&config.ConfigOption{
			Name:      "admin-api-key",
			Usage:     "The API key used in the basic authentication of the admin server",
			OptType:   types.String,
			ConfigKey: &adminServeOpts.AdminAPIKey,
			Required:  true,
		})

	// metrics server options
	metricsServeOpts := serve.MetricsServeOptions{}
	configOpts = append(configOpts,
		&config.ConfigOption{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &metricsServeOpts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		&config.ConfigOption{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		})

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the PhotoProof API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			if err = resolutionOptions.ValidateFlags(); err != nil {
				log.Fatalf("Error validating resolution options: %s", err.Error())
			}
			if err = verificationOptions.ValidateFlags(); err != nil {
				log.Fatalf("Error validating domain verification options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			}
			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject crash tracker options dependencies
			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.Version = globalOptions.Version
			serveOpts.PlatformDomain = globalOptions.PlatformDomain
			serveOpts.MonitorService = monitorService
			serveOpts.EnableLocalFallback = resolutionOptions.EnableLocalFallback
			serveOpts.LocalFallbackSubdomain = resolutionOptions.LocalFallbackSubdomain
			serveOpts.ExemptPathPrefixes = resolutionOptions.ExemptPathPrefixes

			// Inject metrics server dependencies
			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment

			// Inject admin server dependencies
			adminServeOpts.Environment = globalOptions.Environment
			adminServeOpts.GitCommit = globalOptions.GitCommit
			adminServeOpts.Version = globalOptions.Version
			adminServeOpts.PlatformDomain = globalOptions.PlatformDomain
			adminServeOpts.CheckTimeout = verificationOptions.CheckTimeout()
			adminServeOpts.MonitorService = monitorService
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Setup the Crash Tracker client
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			deps, err := setupServeDependencies(globalOptions, resolutionOptions, verificationOptions, monitorService)
			if err != nil {
				log.Ctx(ctx).Fatalf("error setting up server dependencies: %s", err.Error())
			}
			defer deps.close(ctx)

			serveOpts.DBConnectionPool = deps.dbConnectionPool
			serveOpts.Resolver = deps.resolver
			adminServeOpts.DBConnectionPool = deps.dbConnectionPool
			adminServeOpts.ResolutionCache = deps.cache()
			adminServeOpts.VerificationEngine = deps.verificationEngine

			// Starting Scheduler Service (background job)
			log.Ctx(ctx).Info("Starting Scheduler Service...")
			jobOptions := jobs.DomainVerificationJobOptions{
				Store:              deps.studioManager,
				Verifier:           deps.verificationEngine,
				JobIntervalSeconds: verificationOptions.VerificationJobIntervalSeconds,
				BatchSize:          jobs.DefaultDomainVerificationBatchSize,
			}
			if cache := deps.cache(); cache != nil {
				jobOptions.ResolutionCache = cache
			}
			schedulerJobRegistrars := serverService.GetSchedulerJobRegistrars(ctx, jobOptions)
			go scheduler.StartScheduler(crashTrackerClient.Clone(), schedulerJobRegistrars...)

			// Starting Metrics Server (background job)
			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			log.Ctx(ctx).Info("Starting Admin Server...")
			go serverService.StartAdminServe(adminServeOpts, &serveadmin.HTTPServer{})

			// Starting Application Server
			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
