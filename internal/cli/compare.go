package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/job"
)

var (
	compareProvider     string
	compareModel        string
	compareSystemPrompt string
	compareUserPrompt   string
	compareNoGrid       bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <first.pdf> <second.pdf>",
	Short: "Compare two guideline PDFs rule by rule",
	Long: `Upload two mortgage guideline PDFs and compare them with an LLM.

The result grid shows each rule with the value from both documents and a
commentary on the difference.

Examples:
  guidectl compare acme-2025.pdf acme-2026.pdf -p openai -m gpt-4o
  guidectl compare from-db rec-1 rec-2 -p openai -m gpt-4o`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

var compareFromDBCmd = &cobra.Command{
	Use:   "from-db <record-id> <record-id>",
	Short: "Compare two previously ingested guidelines",
	Long: `Compare two guidelines that were already ingested, without
re-uploading the PDFs. Record ids come from 'guidectl history ingest'.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompareFromDB,
}

func init() {
	for _, cmd := range []*cobra.Command{compareCmd, compareFromDBCmd} {
		cmd.Flags().StringVarP(&compareProvider, "provider", "p", "", "LLM provider (required)")
		cmd.Flags().StringVarP(&compareModel, "model", "m", "", "LLM model name (required)")
		cmd.Flags().StringVar(&compareSystemPrompt, "system-prompt", "", "override the comparison system prompt")
		cmd.Flags().StringVar(&compareUserPrompt, "user-prompt", "", "override the comparison user prompt")
		cmd.Flags().BoolVar(&compareNoGrid, "no-grid", false, "print a summary instead of the interactive grid")
	}

	compareCmd.AddCommand(compareFromDBCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	runner := job.NewRunner(api, logger)

	result, err := runJobWithProgress(context.Background(), runner, func(ctx context.Context) (*job.Result, error) {
		return runner.RunCompare(ctx, client.CompareUpload{
			File1Path:     args[0],
			File2Path:     args[1],
			ModelProvider: compareProvider,
			ModelName:     compareModel,
			SystemPrompt:  compareSystemPrompt,
			UserPrompt:    compareUserPrompt,
		})
	})
	if err != nil {
		return err
	}

	return showResult(result, compareNoGrid, nil)
}

func runCompareFromDB(cmd *cobra.Command, args []string) error {
	runner := job.NewRunner(api, logger)

	result, err := runJobWithProgress(context.Background(), runner, func(ctx context.Context) (*job.Result, error) {
		return runner.RunCompareFromDB(ctx, client.CompareFromDBRequest{
			IngestIDs:     []string{args[0], args[1]},
			ModelProvider: compareProvider,
			ModelName:     compareModel,
			SystemPrompt:  compareSystemPrompt,
			UserPrompt:    compareUserPrompt,
		})
	})
	if err != nil {
		return err
	}

	// Chats opened from this grid answer from the stored rows
	return showResult(result, compareNoGrid, []string{args[0], args[1]})
}
