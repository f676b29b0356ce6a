package db

import (
	"context"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/photoproof/photoproof-backend/cmd/utils"
)

const DBConfigOptionFlagName = "database-url"

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "db",
		Short:            "Database related commands",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	executeMigrationsFn := func(ctx context.Context, dir migrate.MigrationDirection, count int) error {
		return ExecuteMigrations(ctx, globalOptions.DatabaseURL, dir, count)
	}
	cmd.AddCommand(MigrateCmd(executeMigrationsFn)) // 'migrate up|down'

	return cmd
}
