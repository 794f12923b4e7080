package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the LLM models the backend accepts",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	catalog, err := api.Models(context.Background())
	if err != nil {
		return fmt.Errorf("fetch model catalog: %w", err)
	}

	fmt.Println("openai:")
	for _, m := range catalog.OpenAI {
		fmt.Printf("  %s\n", m)
	}
	fmt.Println("gemini:")
	for _, m := range catalog.Gemini {
		fmt.Printf("  %s\n", m)
	}
	return nil
}
