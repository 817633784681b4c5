package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errGraphDefects = errors.New("story graph has defects")

func init() {
	cmd := &cobra.Command{
		Use:   "validate <story-id>",
		Short: "Check a story graph for dangling choices, unreachable pages and dead ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storyID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid story id %q: %w", args[0], err)
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				report, err := s.stories.InspectStory(ctx, storyID)
				if err != nil {
					return err
				}
				if err := printJSON(cmd, report); err != nil {
					return err
				}
				if !report.OK() {
					return errGraphDefects
				}
				log.Info().Str("storyID", storyID.String()).Msg("story graph is consistent")
				return nil
			})
		},
	}
	RootCmd.AddCommand(cmd)
}
