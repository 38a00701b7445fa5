package cli

import (
	"encoding/json"
	"fmt"

	"careermatch/internal/types"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run a one-shot match for a stored profile",
	Long: `Run the matching pipeline once for a profile already stored in the
database and print the ranked candidates as JSON. Useful for smoke testing a
deployment without going through the HTTP API.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().String("profile-id", "", "ID of the stored profile to match (required)")
	matchCmd.Flags().String("stage", "", "Career stage override: pathfinder, trailblazer, horizon_changer")
	_ = matchCmd.MarkFlagRequired("profile-id")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	profileID, _ := cmd.Flags().GetString("profile-id")
	stage, _ := cmd.Flags().GetString("stage")

	deps, err := buildDeps(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer deps.close()

	result, err := deps.pipeline.Match(ctx, types.MatchRequest{
		ProfileID: profileID,
		Stage:     stage,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
