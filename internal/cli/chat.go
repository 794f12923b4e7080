package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guidelinehq/guidectl/internal/chat"
	"github.com/guidelinehq/guidectl/internal/client"
)

var (
	chatStructured bool
	chatContexts   []string
)

var chatCmd = &cobra.Command{
	Use:   "chat <ingest|compare> <session-id>",
	Short: "Chat with the assistant about a job's results",
	Long: `Open an interactive chat about a finished job.

By default the assistant reasons over the source document text. With
--structured it answers from the extracted rows instead; pass the record
ids the rows came from with --context.

Examples:
  guidectl chat ingest abc123
  guidectl chat compare cmp-9 --structured --context rec-1 --context rec-2`,
	Args: cobra.ExactArgs(2),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatStructured, "structured", false, "answer from the extracted rows")
	chatCmd.Flags().StringArrayVar(&chatContexts, "context", nil, "record id the structured rows came from")
}

func runChat(cmd *cobra.Command, args []string) error {
	kind := client.Kind(args[0])
	if kind != client.KindIngest && kind != client.KindCompare {
		return fmt.Errorf("unknown job kind %q, want ingest or compare", args[0])
	}

	var ctxIDs []string
	if chatStructured {
		ctxIDs = chatContexts
	}
	return runChatREPL(kind, args[1], ctxIDs)
}

// runChatREPL runs the conversational loop on the terminal. A non-empty
// ctxIDs switches the assistant to structured-data mode.
func runChatREPL(kind client.Kind, sessionID string, ctxIDs []string) error {
	var opts []chat.Option
	if len(ctxIDs) > 0 {
		opts = append(opts, chat.WithStructuredData(ctxIDs))
	}
	conv := chat.New(api, logger, sessionID, opts...)

	theme := defaultTheme
	assistant := theme.statusStyle().Render("assistant")
	you := theme.completedStyle().Render("you")

	fmt.Printf("%s> %s\n\n", assistant, chat.Greeting)
	fmt.Println("Suggestions:")
	for i, p := range chat.SuggestedPrompts {
		fmt.Printf("  %d. %s\n", i+1, p)
	}
	fmt.Println(theme.hintStyle().Render("\nType a question, a suggestion number, or 'exit' to leave."))

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("\n%s> ", you)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		text := strings.TrimSpace(line)

		switch text {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		// A bare number picks a suggested prompt
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(chat.SuggestedPrompts) {
			text = chat.SuggestedPrompts[n-1]
			fmt.Printf("%s\n", theme.hintStyle().Render(text))
		}

		if err := conv.Send(context.Background(), text); err != nil {
			logger.Debug("chat send failed", "error", err)
		}

		msgs := conv.Messages()
		fmt.Printf("\n%s> %s\n", assistant, msgs[len(msgs)-1].Content)
	}
}
