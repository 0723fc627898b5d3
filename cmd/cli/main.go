package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/hoaledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/hoaledger/internal/adapter/repository/postgres"
	"github.com/iho/hoaledger/internal/compliance"
	"github.com/iho/hoaledger/internal/domain"
	"github.com/iho/hoaledger/internal/infrastructure/config"
	"github.com/iho/hoaledger/internal/infrastructure/logger"
	"github.com/iho/hoaledger/internal/infrastructure/postgres"
	"github.com/iho/hoaledger/internal/usecase"
)

// Returned when a check ran but its result fails, so the process exits non-zero.
var (
	errLedgerInconsistent = errors.New("ledger integrity check failed")
	errPolicyFailed       = errors.New("compliance policy failed")
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the flags shared by every subcommand.
type cli struct {
	dataPath string
	tenantID string
	logLevel string
	stderr   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stderr: stderr}

	rootCmd := &cobra.Command{
		Use:          "hoaledger",
		Short:        "HOA ledger reconstruction and integrity tool",
		Long:         `Rebuilds historical balances and runs compliance checks over an exported ledger.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&c.dataPath, "data", "ledger.json", "Path to a JSON ledger export")
	rootCmd.PersistentFlags().StringVar(&c.tenantID, "tenant", "", "Tenant (UUID) to operate on")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(c.reconstructCmd(), c.verifyCmd(), c.checkCmd(), migrateCmd())

	return rootCmd
}

func (c *cli) logger() zerolog.Logger {
	return logger.New(logger.Config{Level: c.logLevel, Format: "console", Output: c.stderr})
}

// services wires the use cases over an in-memory store seeded from the export.
type services struct {
	reconstruction *usecase.ReconstructionUseCase
	accuracy       *usecase.AccuracyUseCase
	immutability   *usecase.ImmutabilityUseCase
	integrity      *usecase.IntegrityUseCase
}

func (c *cli) load() (*services, error) {
	if err := domain.ValidateTenantID(c.tenantID); err != nil {
		return nil, fmt.Errorf("--tenant: %w", err)
	}

	f, err := os.Open(c.dataPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger export: %w", err)
	}
	defer f.Close()

	var ds memory.Dataset
	if err := json.NewDecoder(f).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode ledger export: %w", err)
	}

	store := memory.NewStore()
	if err := store.Load(ds); err != nil {
		return nil, fmt.Errorf("load ledger export: %w", err)
	}

	log := c.logger()
	idGen := postgresRepo.NewULIDGenerator()
	clock := usecase.SystemClock

	reconstruction := usecase.NewReconstructionUseCase(store.Transactions(), store.Entries(), store.Funds(), store.Members(),
		nil, 0, nil, log)

	return &services{
		reconstruction: reconstruction,
		accuracy:       usecase.NewAccuracyUseCase(store, store.Transactions(), store.Entries(), store.Funds(), store.Members(),
			store.Audit(), store.Outbox(), idGen, clock, nil, log),
		immutability: usecase.NewImmutabilityUseCase(store, store.Entries(), store.Audit(), store.Outbox(), idGen, clock, nil, log),
		integrity:    usecase.NewIntegrityUseCase(store, store.Transactions(), store.Entries(), store.Funds(), store.Audit(), store.Outbox(),
			nil, reconstruction, idGen, clock, nil, log),
	}, nil
}

func (c *cli) reconstructCmd() *cobra.Command {
	var asOf, start, end string

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Rebuild balances as of a past date",
	}
	cmd.PersistentFlags().StringVar(&asOf, "as-of", "", "Date to reconstruct at (YYYY-MM-DD, default today)")
	cmd.PersistentFlags().StringVar(&start, "start", "", "Range start (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&end, "end", "", "Range end (YYYY-MM-DD)")

	at := func() (domain.Date, error) {
		if asOf == "" {
			return domain.DateOf(usecase.SystemClock.Now()), nil
		}
		return domain.ParseDate(asOf)
	}
	span := func() (domain.Date, domain.Date, error) {
		s, err := domain.ParseDate(start)
		if err != nil {
			return domain.Date{}, domain.Date{}, fmt.Errorf("--start: %w", err)
		}
		e, err := domain.ParseDate(end)
		if err != nil {
			return domain.Date{}, domain.Date{}, fmt.Errorf("--end: %w", err)
		}
		return s, e, nil
	}

	pointInTime := func(use, short string, fn func(ctx context.Context, svc *services, id string, d domain.Date) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.load()
				if err != nil {
					return err
				}
				d, err := at()
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				out, err := fn(cmd.Context(), svc, args[0], d)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			},
		}
	}

	cmd.AddCommand(
		pointInTime("member", "Member balance as of a date", func(ctx context.Context, svc *services, id string, d domain.Date) (any, error) {
			return svc.reconstruction.MemberBalance(ctx, c.tenantID, id, d)
		}),
		pointInTime("fund", "Fund balance as of a date", func(ctx context.Context, svc *services, id string, d domain.Date) (any, error) {
			return svc.reconstruction.FundBalance(ctx, c.tenantID, id, d)
		}),
		pointInTime("property", "Property financial snapshot as of a date", func(ctx context.Context, svc *services, id string, d domain.Date) (any, error) {
			return svc.reconstruction.PropertySnapshot(ctx, c.tenantID, id, d)
		}),
		&cobra.Command{
			Use:   "fund-history <id>",
			Short: "Daily fund balances over a date range",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.load()
				if err != nil {
					return err
				}
				s, e, err := span()
				if err != nil {
					return err
				}
				out, err := svc.reconstruction.FundHistory(cmd.Context(), c.tenantID, args[0], s, e)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			},
		},
		&cobra.Command{
			Use:   "summary",
			Short: "Transaction totals over a date range",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := c.load()
				if err != nil {
					return err
				}
				s, e, err := span()
				if err != nil {
					return err
				}
				out, err := svc.reconstruction.Summary(cmd.Context(), c.tenantID, s, e)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			},
		},
	)

	return cmd
}

// verifyResult is what the verify command prints.
type verifyResult struct {
	Accuracy     compliance.AccuracyReport     `json:"accuracy"`
	Immutability compliance.ImmutabilityReport `json:"immutability"`
	Policy       []compliance.PolicyResult     `json:"policy"`
	Passed       bool                          `json:"passed"`
}

func (c *cli) verifyCmd() *cobra.Command {
	var (
		asOf        string
		expectedIDs []string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored balances and ledger immutability against the compliance policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.load()
			if err != nil {
				return err
			}

			d := domain.DateOf(usecase.SystemClock.Now())
			if asOf != "" {
				if d, err = domain.ParseDate(asOf); err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
			}

			acc, err := svc.accuracy.ValidateTenant(cmd.Context(), c.tenantID, d)
			if err != nil {
				return err
			}
			imm, err := svc.immutability.VerifyTenant(cmd.Context(), c.tenantID, expectedIDs)
			if err != nil {
				return err
			}

			facts := compliance.FactsFromAccuracy(acc).Merge(compliance.FactsFromImmutability(imm))
			results := compliance.Evaluate(compliance.DefaultCompliancePolicy(), facts)

			res := verifyResult{Accuracy: acc, Immutability: imm, Policy: results, Passed: compliance.Passed(results)}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Passed {
				return errPolicyFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Date to validate at (YYYY-MM-DD, default today)")
	cmd.Flags().StringSliceVar(&expectedIDs, "expected-ids", nil, "Entry ids that must still exist")

	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check double-entry integrity of the whole ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.load()
			if err != nil {
				return err
			}
			report, err := svc.integrity.CheckLedger(cmd.Context(), c.tenantID)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Consistent {
				return errLedgerInconsistent
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	var databaseURL, path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory (default MIGRATIONS_PATH)")

	migrator := func(cmd *cobra.Command) (*postgres.Migrator, error) {
		if databaseURL == "" || path == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			if databaseURL == "" {
				databaseURL = cfg.DatabaseURL
			}
			if path == "" {
				path = cfg.MigrationsPath
			}
		}
		log := logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})
		return postgres.NewMigrator(databaseURL, path, log), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator(cmd)
				if err != nil {
					return err
				}
				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator(cmd)
				if err != nil {
					return err
				}
				return m.Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := migrator(cmd)
				if err != nil {
					return err
				}
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %v\n", v, dirty)
				return nil
			},
		},
	)

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
