package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/assistant"
	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/query"
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask questions about your finances",
		Long: `Ask a question in plain language. The assistant answers by running
read-only queries against the ledger. Without a question an interactive
session starts; an empty line or Ctrl-D ends it.`,
		Example: `  ledger ask "How much did we spend on food last month?"
  ledger ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			bot, err := assistant.New(assistant.Config{
				APIKey:  cfg.AssistantAPIKey,
				Model:   cfg.AssistantModel,
				BaseURL: cfg.AssistantBaseURL,
				Timeout: cfg.AssistantTimeout,
				Owners:  cfg.OwnerNames(),
				Clock:   time.Now,
			}, &query.Guard{Runner: store, MaxRows: cfg.QueryMaxRows})
			if err != nil {
				return common.NewUserError("the assistant is not configured (set assistant.api_key or OPENAI_API_KEY)", err)
			}

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				history := []assistant.Message{{Role: "user", Content: strings.Join(args, " ")}}
				writeLine(out, bot.Ask(ctx, history))
				return nil
			}
			return converse(ctx, bot, cli.NewNonBlockingReader(cmd.InOrStdin()), out)
		},
	}
}

// converse runs a question/answer loop, keeping the conversation as context
// for follow-up questions.
func converse(ctx context.Context, bot *assistant.Assistant, in *cli.NonBlockingReader, out io.Writer) error {
	writeLine(out, cli.FormatInfo("Ask about your transactions, budgets or assets. An empty line ends the session."))

	var history []assistant.Message
	for {
		if _, err := io.WriteString(out, cli.FormatPrompt("you")); err != nil {
			return err
		}
		question, err := in.ReadLine(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, cli.ErrInputCancelled) {
			writeLine(out, "")
			return nil
		}
		if err != nil {
			return err
		}
		if question == "" {
			return nil
		}

		history = append(history, assistant.Message{Role: "user", Content: question})
		answer := bot.Ask(ctx, history)
		history = append(history, assistant.Message{Role: "assistant", Content: answer})

		writeLine(out, answer)
		writeLine(out, "")
	}
}
