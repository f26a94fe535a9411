package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/migration"
	"github.com/smallbiznis/invoicely/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default products and partners into empty tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			conn *gorm.DB
			node *snowflake.Node
			log  *zap.Logger
		)
		app := fx.New(infra(), fx.Populate(&conn, &node, &log))

		return runOnce(cmd.Context(), app, func(ctx context.Context) error {
			if err := migration.Run(conn); err != nil {
				return err
			}
			res, err := seed.EnsureDefaults(ctx, conn, node, log.Named("seed"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products, %d partners\n", res.Products, res.Partners)
			return nil
		})
	},
}
