package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/factory"
	"github.com/SahanaGS-tech/voice-agent-backend/internal/seed"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg)
			st, err := factory.NewStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("schema applied")
			return st.Close()
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo callers and appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg)
			st, err := factory.NewStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := seed.Load(cmd.Context(), st, time.Now(), log)
			if errors.Is(err, seed.ErrAlreadySeeded) {
				fmt.Fprintln(cmd.OutOrStdout(), "Demo data already present; nothing to do.")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Test callers:")
			for _, u := range res.Users {
				name := u.DisplayName()
				if name == "" {
					name = "(no name yet)"
				}
				fmt.Fprintf(out, "  %s  %s\n", u.Phone, name)
			}
			fmt.Fprintln(out, "Appointments:")
			for _, a := range res.Appointments {
				fmt.Fprintf(out, "  %s  %s %s  %s\n", a.Code, a.Date, a.Time, a.Status)
			}
			return nil
		},
	}
}
