package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/client"
)

var historyForce bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and prune past extraction and comparison jobs",
	Long: `Browse the records of past jobs stored on the server.

Subcommands:
  ingest    List past extractions (default)
  compare   List past comparisons
  open      Re-open a record's result grid
  delete    Delete one record
  clear     Delete all records of one kind

Examples:
  guidectl history
  guidectl history compare
  guidectl history delete ingest rec-42
  guidectl history clear compare --force`,
	RunE: runHistoryIngest,
}

var historyIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "List past extractions",
	RunE:  runHistoryIngest,
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "List past comparisons",
	RunE:  runHistoryCompare,
}

var historyOpenCmd = &cobra.Command{
	Use:   "open <ingest|compare> <record-id>",
	Short: "Re-open a record's result grid",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryOpen,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <ingest|compare> <record-id>",
	Short: "Delete one history record",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <ingest|compare>",
	Short: "Delete all history records of one kind",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryClear,
}

func init() {
	historyDeleteCmd.Flags().BoolVarP(&historyForce, "force", "f", false, "skip confirmation")
	historyClearCmd.Flags().BoolVarP(&historyForce, "force", "f", false, "skip confirmation")

	historyCmd.AddCommand(historyIngestCmd)
	historyCmd.AddCommand(historyCompareCmd)
	historyCmd.AddCommand(historyOpenCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func runHistoryIngest(cmd *cobra.Command, args []string) error {
	records, err := api.IngestHistory(context.Background())
	if err != nil {
		return fmt.Errorf("list ingest history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No extractions yet.")
		return nil
	}

	fmt.Printf("%-12s %-20s %-10s %-28s %-20s %s\n", "ID", "INVESTOR", "VERSION", "FILE", "MODEL", "CREATED")
	for _, r := range records {
		fmt.Printf("%-12s %-20s %-10s %-28s %-20s %s\n",
			r.ID, r.Investor, r.Version, r.FileName,
			r.ModelProvider+"/"+r.ModelName, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Println("\nCompare two records with 'guidectl compare from-db <id> <id>'.")
	return nil
}

func runHistoryCompare(cmd *cobra.Command, args []string) error {
	records, err := api.CompareHistory(context.Background())
	if err != nil {
		return fmt.Errorf("list compare history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No comparisons yet.")
		return nil
	}

	fmt.Printf("%-12s %-28s %-28s %-20s %s\n", "ID", "FILE 1", "FILE 2", "MODEL", "CREATED")
	for _, r := range records {
		fmt.Printf("%-12s %-28s %-28s %-20s %s\n",
			r.ID, r.File1Name, r.File2Name,
			r.ModelProvider+"/"+r.ModelName, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runHistoryOpen(cmd *cobra.Command, args []string) error {
	kind, id := client.Kind(args[0]), args[1]
	ctx := context.Background()

	var sessionID string
	switch kind {
	case client.KindIngest:
		records, err := api.IngestHistory(ctx)
		if err != nil {
			return fmt.Errorf("list ingest history: %w", err)
		}
		for _, r := range records {
			if r.ID == id {
				sessionID = r.SessionID
				break
			}
		}
	case client.KindCompare:
		records, err := api.CompareHistory(ctx)
		if err != nil {
			return fmt.Errorf("list compare history: %w", err)
		}
		for _, r := range records {
			if r.ID == id {
				sessionID = r.SessionID
				break
			}
		}
	default:
		return fmt.Errorf("unknown history kind %q, want ingest or compare", args[0])
	}
	if sessionID == "" {
		return fmt.Errorf("no %s record with id %s", kind, id)
	}

	dataset, err := api.Preview(ctx, kind, sessionID)
	if err != nil {
		return fmt.Errorf("fetch result rows: %w", err)
	}

	openChat, err := runGrid(dataset, kind, sessionID)
	if err != nil {
		return err
	}
	if openChat {
		return runChatREPL(kind, sessionID, nil)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	kind, id := args[0], args[1]

	if !historyForce && !confirm(fmt.Sprintf("Delete %s record %s?", kind, id)) {
		fmt.Println("Aborted.")
		return nil
	}

	ctx := context.Background()
	var err error
	switch kind {
	case "ingest":
		err = api.DeleteIngestRecord(ctx, id)
	case "compare":
		err = api.DeleteCompareRecord(ctx, id)
	default:
		return fmt.Errorf("unknown history kind %q, want ingest or compare", kind)
	}
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	fmt.Println("Deleted.")
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	kind := args[0]

	if !historyForce && !confirm(fmt.Sprintf("Delete ALL %s records?", kind)) {
		fmt.Println("Aborted.")
		return nil
	}

	ctx := context.Background()
	var err error
	switch kind {
	case "ingest":
		err = api.DeleteAllIngestRecords(ctx)
	case "compare":
		err = api.DeleteAllCompareRecords(ctx)
	default:
		return fmt.Errorf("unknown history kind %q, want ingest or compare", kind)
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	fmt.Println("History cleared.")
	return nil
}

// confirm asks a yes/no question on stdin, default no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
