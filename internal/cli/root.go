// Package cli provides the command-line interface for hindsight.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/config"
	"github.com/mfeldheim/hindsight/internal/ingest"
	"github.com/mfeldheim/hindsight/internal/llm"
	"github.com/mfeldheim/hindsight/internal/metrics"
	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/repo"
	"github.com/mfeldheim/hindsight/internal/search"
	"github.com/mfeldheim/hindsight/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global application state, built in PersistentPreRunE.
	cfg       config.Config
	logger    *slog.Logger
	logClose  func() error
	client    *store.Client
	collector *metrics.Collector

	conversations *repo.Conversations
	messages      *repo.Messages
	toolCalls     *repo.Children[models.ToolCall]
	convFiles     *repo.Children[models.ConversationFile]
	msgFiles      *repo.Children[models.MessageFile]
	fileEdits     *repo.Children[models.FileEdit]
	syncStates    *repo.SyncStates
	billingRepo   *repo.BillingEvents

	// Lazy-initialized embedder; only commands that embed pay the cost.
	embedder *llm.Embedder
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hindsight",
	Short: "Searchable archive of AI coding-assistant conversations",
	Long: `Hindsight stores coding-assistant transcripts in SurrealDB and makes
them searchable with hybrid vector + keyword search.

Import normalized transcript records, then search across conversations,
messages, touched files, and billing data.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		collector = metrics.NewCollector()

		ctx := context.Background()
		client, err = store.NewClient(ctx, store.Config{
			URL:            cfg.StoreURL,
			Namespace:      cfg.StoreNamespace,
			Database:       cfg.StoreDatabase,
			Username:       cfg.StoreUser,
			Password:       cfg.StorePass,
			AuthLevel:      cfg.StoreAuthLevel,
			EmbedDimension: cfg.EmbedDimension,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to store: %w", err)
		}
		client.OnQuery = func(d time.Duration) {
			collector.Record(metrics.OpStoreQuery, d)
		}
		if err := client.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		conversations = repo.NewConversations(client, logger)
		messages = repo.NewMessages(client, logger, embedFunc, repo.DefaultSearchConfig())
		toolCalls = repo.NewToolCalls(client, logger)
		convFiles = repo.NewConversationFiles(client, logger)
		msgFiles = repo.NewMessageFiles(client, logger)
		fileEdits = repo.NewFileEdits(client, logger)
		syncStates = repo.NewSyncStates(client, logger)
		billingRepo = repo.NewBillingEvents(client, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if client != nil {
			if err := client.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logClose != nil {
			_ = logClose()
		}
	},
}

// embedFunc lazily builds the embedder on first use. Returning an error
// here makes the message repo fall back from hybrid to keyword search.
func embedFunc(ctx context.Context, text string) ([]float32, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg, collector)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder.Embed(ctx, text)
}

// getEmbedder initializes the embedder for commands that require it.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg, collector)
		if err != nil {
			return nil, err
		}
	}
	return embedder, nil
}

func newEngine() *search.Engine {
	return search.NewEngine(conversations, messages, convFiles, msgFiles, fileEdits, logger, collector)
}

func newImporter() *ingest.Importer {
	return ingest.NewImporter(client, conversations, messages, toolCalls, convFiles,
		msgFiles, fileEdits, syncStates, billingRepo, logger, collector,
		cfg.EmbedDimension, cfg.SyncBatchSize)
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(billingCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statsCmd)
}
