package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage play sessions",
	}

	var olderThan time.Duration
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete play sessions untouched for longer than the TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl := cfg.SessionTTL
			if olderThan > 0 {
				ttl = olderThan
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				removed, err := s.sessions.SweepStale(ctx, ttl)
				if err != nil {
					return err
				}
				log.Info().Int64("removed", removed).Dur("olderThan", ttl).Msg("sessions swept")
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", removed)
				return err
			})
		},
	}
	sweepCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Override the configured session TTL")

	sessionsCmd.AddCommand(sweepCmd)
	RootCmd.AddCommand(sessionsCmd)
}
