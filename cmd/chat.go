package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/ragchat/internal/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	color.New(color.FgCyan).Fprintln(out, "\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	userPrompt := color.New(color.FgGreen)

	for {
		userPrompt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if lower := strings.ToLower(query); lower == "exit" || lower == "quit" {
			break
		}

		spinner := getSpinner(cmd.ErrOrStderr(), "Searching documents...")
		answer, err := a.service.Ask(ctx, query, a.cfg.Retrieval.TopK)
		spinner.Finish()
		fmt.Fprint(cmd.ErrOrStderr(), "\r")

		if err != nil {
			if errors.Is(err, types.ErrEmptyRetrieval) {
				color.New(color.FgYellow).Fprintln(out, "No relevant documents found")
				continue
			}
			color.New(color.FgRed).Fprintf(out, "Error: %v\n", err)
			continue
		}

		printAnswer(out, answer)
	}

	return scanner.Err()
}
