package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/client"
	"github.com/guidelinehq/guidectl/internal/job"
)

var (
	ingestInvestor     string
	ingestVersion      string
	ingestProvider     string
	ingestModel        string
	ingestEffective    string
	ingestExpiry       string
	ingestSystemPrompt string
	ingestUserPrompt   string
	ingestNoGrid       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <guideline.pdf>",
	Short: "Extract structured rules from a guideline PDF",
	Long: `Upload a mortgage guideline PDF and run LLM extraction on it.

Progress is streamed live; once the job completes the extracted rules
open in an interactive grid with search, sort, filter and pagination.

Examples:
  guidectl ingest acme-2026.pdf --investor "Acme Lending" --version 2026-01 --provider openai --model gpt-4o
  guidectl ingest acme-2026.pdf -i Acme -V 2026-01 -p gemini -m gemini-1.5-pro --effective 2026-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInvestor, "investor", "i", "", "investor the guideline belongs to (required)")
	ingestCmd.Flags().StringVarP(&ingestVersion, "version", "V", "", "guideline version label (required)")
	ingestCmd.Flags().StringVarP(&ingestProvider, "provider", "p", "", "LLM provider (required)")
	ingestCmd.Flags().StringVarP(&ingestModel, "model", "m", "", "LLM model name (required)")
	ingestCmd.Flags().StringVar(&ingestEffective, "effective", "", "effective date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestExpiry, "expiry", "", "expiry date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestSystemPrompt, "system-prompt", "", "override the extraction system prompt")
	ingestCmd.Flags().StringVar(&ingestUserPrompt, "user-prompt", "", "override the extraction user prompt")
	ingestCmd.Flags().BoolVar(&ingestNoGrid, "no-grid", false, "print a summary instead of the interactive grid")
}

func runIngest(cmd *cobra.Command, args []string) error {
	runner := job.NewRunner(api, logger)

	result, err := runJobWithProgress(context.Background(), runner, func(ctx context.Context) (*job.Result, error) {
		return runner.RunIngest(ctx, client.IngestUpload{
			FilePath:      args[0],
			Investor:      ingestInvestor,
			Version:       ingestVersion,
			ModelProvider: ingestProvider,
			ModelName:     ingestModel,
			EffectiveDate: ingestEffective,
			ExpiryDate:    ingestExpiry,
			SystemPrompt:  ingestSystemPrompt,
			UserPrompt:    ingestUserPrompt,
		})
	})
	if err != nil {
		return err
	}

	return showResult(result, ingestNoGrid, nil)
}

// showResult opens the grid (or prints a summary) and chains into the
// chat when the user asks for it from the grid. A non-empty ctxIDs puts
// that chat in structured-data mode.
func showResult(result *job.Result, noGrid bool, ctxIDs []string) error {
	if result == nil || result.Dataset == nil {
		return nil
	}

	if noGrid {
		fmt.Printf("Job %s finished with %d rows. Use 'guidectl export %s %s' to save them.\n",
			result.Job.ID, len(result.Dataset.Rows), result.Job.Kind, result.Job.ID)
		return nil
	}

	openChat, err := runGrid(result.Dataset, result.Job.Kind, result.Job.ID)
	if err != nil {
		return err
	}
	if openChat {
		return runChatREPL(result.Job.Kind, result.Job.ID, ctxIDs)
	}
	return nil
}
