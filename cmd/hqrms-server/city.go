package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hqrms/hqrms/internal/config"
	"github.com/hqrms/hqrms/internal/domain/city"
	"github.com/hqrms/hqrms/internal/platform/db"
	"github.com/hqrms/hqrms/internal/seed"
)

func cityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "city",
		Short: "Manage city hospital summaries in Postgres",
	}

	seedCmd := &cobra.Command{
		Use:   "seed-db",
		Short: "Apply migrations and load the demo hospital summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCityRepo(cmd.Context(), func(ctx context.Context, repo city.Repository, svc *city.Service) error {
				for _, h := range seed.CityHospitals() {
					h := h
					if err := svc.ReportHospital(ctx, &h); err != nil {
						return fmt.Errorf("upsert %s: %w", h.ID, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d hospitals.\n", len(seed.CityHospitals()))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored hospital summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCityRepo(cmd.Context(), func(ctx context.Context, repo city.Repository, svc *city.Service) error {
				ov, err := svc.Overview(ctx)
				if err != nil {
					return err
				}
				printOverview(cmd, ov)
				return nil
			})
		},
	}

	cmd.AddCommand(seedCmd, listCmd)
	return cmd
}

// withCityRepo connects to DATABASE_URL, applies pending migrations and runs fn.
func withCityRepo(ctx context.Context, fn func(context.Context, city.Repository, *city.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	logger := newLogger(cfg)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info().Int("applied", n).Msg("migrations applied")
	}

	repo := city.NewHospitalRepoPG(pool)
	return fn(ctx, repo, city.NewService(repo, logger))
}

func printOverview(cmd *cobra.Command, ov *city.Overview) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBEDS\tICU\tOPD\tER CAP\tCRITICAL")
	for _, h := range ov.Hospitals {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d/%d\t%s\t%d%%\t%v\n",
			h.ID, h.Name, h.AvailableBeds, h.TotalBeds, h.ICUAvailable, h.ICUTotal,
			h.OPDLoad, h.EmergencyCapacity, h.Critical)
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\nbeds %d/%d (%d%%), icu %d/%d (%d%%), critical %d\n",
		ov.AvailableBeds, ov.TotalBeds, ov.BedAvailabilityPct,
		ov.AvailableICU, ov.TotalICU, ov.ICUAvailabilityPct, len(ov.CriticalHospitals))
}
