package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/guidelinehq/guidectl/internal/client"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Show or edit the LLM prompt templates",
	Long: `Show or edit the prompt templates the backend uses per provider.

Subcommands:
  show    Print the current templates as YAML (default)
  edit    Open the templates in $EDITOR and save the result
  reset   Restore the backend defaults`,
	RunE: runPromptsShow,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current prompt templates",
	RunE:  runPromptsShow,
}

var promptsEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the prompt templates in $EDITOR",
	RunE:  runPromptsEdit,
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default prompt templates",
	RunE:  runPromptsReset,
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsEditCmd)
	promptsCmd.AddCommand(promptsResetCmd)
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	prompts, err := api.GetPrompts(context.Background())
	if err != nil {
		return fmt.Errorf("fetch prompts: %w", err)
	}

	out, err := yaml.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("render prompts: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runPromptsEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	prompts, err := api.GetPrompts(ctx)
	if err != nil {
		return fmt.Errorf("fetch prompts: %w", err)
	}

	buf, err := yaml.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("render prompts: %w", err)
	}

	path := filepath.Join(os.TempDir(), "guidectl-prompts.yaml")
	if err := os.WriteFile(path, buf, 0600); err != nil {
		return fmt.Errorf("write prompts file: %w", err)
	}
	defer os.Remove(path)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	edit := exec.Command(editor, path)
	edit.Stdin = os.Stdin
	edit.Stdout = os.Stdout
	edit.Stderr = os.Stderr
	if err := edit.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read edited prompts: %w", err)
	}

	var next client.Prompts
	if err := yaml.Unmarshal(edited, &next); err != nil {
		return fmt.Errorf("parse edited prompts: %w", err)
	}

	updated, err := api.UpdatePrompts(ctx, &next)
	if err != nil {
		return fmt.Errorf("save prompts: %w", err)
	}
	fmt.Printf("Prompts updated (%d ingest, %d compare providers).\n",
		len(updated.IngestPrompts), len(updated.ComparePrompts))
	return nil
}

func runPromptsReset(cmd *cobra.Command, args []string) error {
	if _, err := api.ResetPrompts(context.Background()); err != nil {
		return fmt.Errorf("reset prompts: %w", err)
	}
	fmt.Println("Prompts restored to defaults.")
	return nil
}
