package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/invoicely/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		var conn *gorm.DB
		app := fx.New(infra(), fx.Populate(&conn))

		return runOnce(cmd.Context(), app, func(ctx context.Context) error {
			if err := migration.Run(conn); err != nil {
				return err
			}
			version, dirty, err := migration.Version(conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		})
	},
}
