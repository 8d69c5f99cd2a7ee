package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/ragchat/pkg/rag"
	"github.com/xhad/ragchat/pkg/source"
)

var (
	ingestSource   string
	ingestURL      string
	ingestDir      string
	ingestTopics   []string
	ingestMaxDepth int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch documents and load them into an empty vector store",
	Long: `Fetches documents from Wikipedia, a website or a local directory, splits
them into overlapping chunks, embeds them and stores them. A store that
already holds chunks is left unchanged.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "document source: wikipedia, website or directory")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "start URL for the website source")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory for the directory source")
	ingestCmd.Flags().StringSliceVar(&ingestTopics, "topics", nil, "Wikipedia topics to fetch")
	ingestCmd.Flags().IntVar(&ingestMaxDepth, "max-depth", 0, "maximum crawl depth for the website source")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	stages := map[string]string{
		rag.StageChunking:  "Chunking %d documents",
		rag.StageEmbedding: "Embedding %d chunks",
		rag.StageStoring:   "Storing %d chunks",
	}

	fetchSpinner := getSpinner(cmd.ErrOrStderr(), "Fetching documents...")
	bars := newStageBars(cmd.ErrOrStderr(), fetchSpinner)

	a, err := newApp(ctx, cmd, func(stage string, items int) {
		if format, ok := stages[stage]; ok {
			color.New(color.FgBlue).Fprintf(out, format+"...\n", items)
			bars.start(fmt.Sprintf(format, items), items)
		}
	})
	if err != nil {
		bars.abort()
		return err
	}
	defer a.Close()

	srcConfig := a.cfg.SourceConfig()
	if ingestSource != "" {
		srcConfig.Kind = ingestSource
	}
	if ingestURL != "" {
		srcConfig.BaseURL = ingestURL
		if ingestSource == "" {
			srcConfig.Kind = source.KindWebsite
		}
	}
	if ingestDir != "" {
		srcConfig.Dir = ingestDir
		if ingestSource == "" {
			srcConfig.Kind = source.KindDirectory
		}
	}
	if len(ingestTopics) > 0 {
		srcConfig.Topics = ingestTopics
	}
	if ingestMaxDepth > 0 {
		srcConfig.MaxDepth = ingestMaxDepth
	}
	srcConfig.Logger = a.logger

	fetched := 0
	srcConfig.OnProgress = func(item string) {
		fetched++
		fetchSpinner.Describe(color.CyanString("Fetching documents... (%d) %s", fetched, item))
	}

	src, err := source.New(srcConfig)
	if err != nil {
		return err
	}

	color.New(color.FgBlue).Fprintf(out, "Starting %s ingestion\n", srcConfig.Kind)
	result, err := a.service.Populate(ctx, src)
	if err != nil {
		bars.abort()
		return fmt.Errorf("ingestion failed: %w", err)
	}
	bars.done()

	switch {
	case result.Skipped:
		count, _ := a.service.Count(ctx)
		color.New(color.FgYellow).Fprintf(out, "Store already holds %d chunks, skipping ingestion\n", count)
	case result.Documents == 0:
		color.New(color.FgYellow).Fprintln(out, "No documents fetched")
	default:
		color.New(color.FgGreen).Fprintf(out, "✓ Ingested %d documents as %d chunks\n", result.Documents, result.ChunksAdded)
	}
	return nil
}
