package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/bootstrap"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/config"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/database"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/seed"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type configLoader func() (*config.Config, error)

// cli carries the state shared by every subcommand.
type cli struct {
	load   configLoader
	sqlite string
}

func newRootCmd(load configLoader) *cobra.Command {
	c := &cli{load: load}

	rootCmd := &cobra.Command{
		Use:           "leasectl",
		Short:         "Rental lifecycle operations tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.sqlite, "sqlite", "", "use this SQLite file instead of PostgreSQL")

	rootCmd.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.sweepCmd(),
		c.quoteCmd(),
		c.configCmd(),
		c.tokenCmd(),
	)
	return rootCmd
}

func (c *cli) open() (*config.Config, *gorm.DB, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := bootstrap.OpenDatabase(cfg, c.sqlite)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := c.open()
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d models.\n", len(database.PersistentModels()))
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	opts := seed.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo properties and vendors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := c.open()
			if err != nil {
				return err
			}
			defer closeDB(db)
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}

			summary, err := seed.Demo(db, opts)
			if err != nil {
				return err
			}
			if summary.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already has properties; nothing seeded.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d properties and %d vendors.\n", summary.Properties, summary.Vendors)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Landlords, "landlords", opts.Landlords, "number of landlords")
	cmd.Flags().IntVar(&opts.PropertiesPerLandlord, "properties", opts.PropertiesPerLandlord, "properties per landlord")
	cmd.Flags().IntVar(&opts.Vendors, "vendors", opts.Vendors, "number of vendors")
	cmd.Flags().UintVar(&opts.FirstLandlordID, "first-landlord-id", opts.FirstLandlordID, "user ID of the first landlord")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed for reproducible data")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "generate without writing")
	return cmd
}

func (c *cli) sweepCmd() *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "sweep-expired",
		Short: "Expire ACTIVE leases whose end date has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			today := time.Now().UTC()
			if day != "" {
				parsed, err := time.Parse(time.DateOnly, day)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				today = parsed
			}

			cfg, db, err := c.open()
			if err != nil {
				return err
			}
			defer closeDB(db)

			// Events go to this process's hub; nobody is listening, which is fine for a batch run.
			srv, err := server.NewServerWithDeps(cfg, db, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			expired, err := srv.LeaseService().ExpireDue(ctx, models.SystemActor(), today)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d leases as of %s.\n", expired, today.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "sweep as of this UTC date (default today)")
	return cmd
}

func (c *cli) quoteCmd() *cobra.Command {
	var amount, processing, currency string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the platform fee and landlord net for a payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			policy, err := cfg.FeePolicy()
			if err != nil {
				return err
			}
			calc, err := fees.NewCalculator(policy)
			if err != nil {
				return err
			}

			gross, err := models.FromMajorUnits(amount, currency)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			proc, err := models.FromMajorUnits(processing, currency)
			if err != nil {
				return fmt.Errorf("--processing-fee: %w", err)
			}
			q, err := calc.Quote(gross, proc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "amount:         %s\n", q.Amount.DisplayString())
			fmt.Fprintf(out, "platform fee:   %s\n", q.PlatformFee.DisplayString())
			fmt.Fprintf(out, "processing fee: %s\n", q.ProcessingFee.DisplayString())
			fmt.Fprintf(out, "landlord net:   %s\n", q.LandlordNet.DisplayString())
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "gross amount in major units, e.g. 2500.00")
	cmd.Flags().StringVar(&processing, "processing-fee", "0", "gateway processing fee in major units")
	cmd.Flags().StringVar(&currency, "currency", models.DefaultCurrency, "ISO 4217 currency code")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML (secrets omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		userID uint
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to mint tokens with the production secret")
			}
			actor := models.Actor{ID: userID, Role: models.Role(strings.ToUpper(role))}
			if userID == 0 || !actor.Role.Valid() || actor.IsSystem() {
				return fmt.Errorf("--user-id and a --role of RENTER, LANDLORD or ADMIN are required")
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, actor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "subject user ID")
	cmd.Flags().StringVar(&role, "role", string(models.RoleRenter), "RENTER, LANDLORD or ADMIN")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
