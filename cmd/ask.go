package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question from the stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (defaults to retrieval.top_k)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	topK := askTopK
	if topK == 0 {
		topK = a.cfg.Retrieval.TopK
	}

	answer, err := a.service.Ask(ctx, strings.Join(args, " "), topK)
	if err != nil {
		if errors.Is(err, types.ErrEmptyRetrieval) {
			return fmt.Errorf("no relevant documents found, run 'ragchat ingest' first")
		}
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(map[string]interface{}{
			"answer":  answer.Text,
			"sources": answer.Sources,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func printAnswer(w io.Writer, answer models.Answer) {
	if answer.Degraded() {
		color.New(color.FgRed).Fprintf(w, "Assistant: %s\n", answer.Text)
	} else {
		color.New(color.FgCyan).Fprintf(w, "Assistant: %s\n", answer.Text)
	}
	if len(answer.Sources) == 0 {
		return
	}
	color.New(color.FgHiBlack).Fprintln(w, "Sources:")
	for _, src := range answer.Sources {
		color.New(color.FgHiBlack).Fprintf(w, "  - %s\n", src)
	}
}
