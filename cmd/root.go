package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/cmd/db"
	cmdUtils "github.com/photoproof/photoproof-backend/cmd/utils"
	"github.com/photoproof/photoproof-backend/internal/monitor"
)

// globalOptions is a variable that holds the global CLI options that can be
// applied to any command or subcommand.
var globalOptions cmdUtils.GlobalOptionsType

// EnvFileFlagName is read before the CLI is set up, see cmdUtils.LoadEnvFile. It is registered here so cobra accepts it.
const EnvFileFlagName = "env-file"

func rootCmd() *cobra.Command {
	configOpts := config.ConfigOptions{
		{
			Name:           "log-level",
			Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
			OptType:        types.String,
			FlagDefault:    "TRACE",
			ConfigKey:      &globalOptions.LogLevel,
			CustomSetValue: cmdUtils.SetConfigOptionLogLevel,
			Required:       true,
		},
		{
			Name:      "sentry-dsn",
			Usage:     "The DSN (client key) of the Sentry project. If not provided, Sentry will not be used.",
			OptType:   types.String,
			ConfigKey: &globalOptions.SentryDSN,
			Required:  false,
		},
		{
			Name:        "environment",
			Usage:       `The environment where the application is running. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &globalOptions.Environment,
			Required:    true,
		},
		{
			Name:        db.DBConfigOptionFlagName,
			Usage:       `Postgres DB URL`,
			OptType:     types.String,
			FlagDefault: "postgres://localhost:5432/photoproof?sslmode=disable",
			ConfigKey:   &globalOptions.DatabaseURL,
			Required:    true,
		},
		{
			Name:           "platform-domain",
			Usage:          `The apex domain under which studios get their subdomain. Example: "photoproof.app" serves "lumen.photoproof.app".`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionPlatformDomain,
			ConfigKey:      &globalOptions.PlatformDomain,
			FlagDefault:    "photoproof.localhost",
			Required:       true,
		},
	}

	rootCmd := &cobra.Command{
		Use:     "photoproof",
		Short:   "PhotoProof Backend",
		Long:    "The PhotoProof backend serves every studio of the platform, resolving the studio of each request from its hostname.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			log.Info("Version: ", globalOptions.Version)
			log.Info("GitCommit: ", globalOptions.GitCommit)
		},
		RunE: cmdUtils.CallHelpCommand,
	}
	rootCmd.PersistentFlags().String(EnvFileFlagName, "", "Path of a .env file to load. Defaults to the ENV_FILE environment variable, then ./.env")

	err := configOpts.Init(rootCmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	// Add subcommands
	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))
	rootCmd.AddCommand((&db.DatabaseCommand{}).Command(&globalOptions))
	rootCmd.AddCommand((&StudiosCommand{}).Command(&globalOptions))

	return rootCmd
}
