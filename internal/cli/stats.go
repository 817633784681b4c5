package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print play statistics",
	}

	var limit int
	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Most played stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				top, err := s.analytics.TopStories(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, top)
			})
		},
	}
	topCmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of stories")

	endingsCmd := &cobra.Command{
		Use:   "endings <story-id>",
		Short: "Ending distribution of a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storyID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid story id %q: %w", args[0], err)
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				stats, err := s.analytics.EndingStats(ctx, storyID)
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}

	statsCmd.AddCommand(topCmd, endingsCmd)
	RootCmd.AddCommand(statsCmd)
}
