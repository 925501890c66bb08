package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/medequip/internal/app"
	"github.com/Additional-Code/medequip/internal/entity"
	"github.com/Additional-Code/medequip/internal/migration"
	"github.com/Additional-Code/medequip/internal/seeder"
	equipmentsvc "github.com/Additional-Code/medequip/internal/service/equipment"
)

// NewRootCommand builds the root medequip CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "medequip",
		Short:         "Medical equipment registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newEquipmentCmd())

	return root
}

// Execute runs the medequip CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP API and gRPC health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []fx.Option{}
			if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
				opts = append(opts, app.AutoMigrate)
			}
			opts = append(opts, app.Module)
			return runUntilDone(cmd.Context(), fx.New(opts...))
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, mig *migration.Migrator) error) error {
		var mig *migration.Migrator
		opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
		return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
			return fn(ctx, mig)
		})
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, mig *migration.Migrator) error {
				version, err := mig.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample equipment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				res, err := seed.Equipment(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seed data applied: %d created, %d already present\n", res.Created, res.Skipped)
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume equipment events and flag due maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Worker))
		},
	})
	return cmd
}

func newEquipmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "equipment",
		Short: "Inspect registered equipment",
	}

	withRegistry := func(cmd *cobra.Command, fn func(ctx context.Context, svc *equipmentsvc.Service) error) error {
		var svc *equipmentsvc.Service
		opts := fx.Options(app.Core, fx.Populate(&svc))
		return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
			return fn(ctx, svc)
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List equipment, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, func(ctx context.Context, svc *equipmentsvc.Service) error {
				records, err := svc.List(ctx)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), records)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [id]",
		Short: "Show one equipment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withRegistry(cmd, func(ctx context.Context, svc *equipmentsvc.Service) error {
				rec, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return writeTable(cmd.OutOrStdout(), []entity.Equipment{*rec})
			})
		},
	})

	return cmd
}

func writeTable(out io.Writer, records []entity.Equipment) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERIAL\tNAME\tCATEGORY\tSTATUS\tNEXT MAINTENANCE\tCREATED")
	for _, rec := range records {
		next := "-"
		if rec.NextMaintenanceDate != nil {
			next = rec.NextMaintenanceDate.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.SerialNumber, rec.Name, rec.Category, rec.Status.Label(), next,
			rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runUntilDone(ctx context.Context, application *fx.App) error {
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
