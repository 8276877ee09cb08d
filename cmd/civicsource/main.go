package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/young1lin/civicsource/internal/assistant"
	"github.com/young1lin/civicsource/internal/config"
	"github.com/young1lin/civicsource/internal/handler"
	"github.com/young1lin/civicsource/internal/models"
	"github.com/young1lin/civicsource/internal/search"
	"github.com/young1lin/civicsource/internal/storage"
	"github.com/young1lin/civicsource/pkg/logger"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	cfgFile string
	port    int
	showVer bool

	searchLocation string
	searchRadius   string
	searchLimit    string
)

var rootCmd = &cobra.Command{
	Use:   "civicsource",
	Short: "Local business search aggregator",
	Long: `An API server that fans a business search out to a ratings directory,
a places directory and a local business data directory, merges and
deduplicates the results, and proxies assistant chat messages to a
hosted language model.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVer {
			fmt.Printf("civicsource %s (built %s)\n", Version, BuildDate)
			return
		}

		cfg := config.Load(cfgFile)

		// Override config with command line flags
		if port > 0 {
			cfg.Server.Port = port
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		defer logger.Sync()

		logger.Info("starting server",
			zap.String("version", Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
		)

		if err := startServer(cfg); err != nil {
			logger.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Run one aggregated search and print the results as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(cfgFile)
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		defer logger.Sync()

		svc, store, err := buildSearchService(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		businesses, err := svc.Search(cmd.Context(), models.RawSearchQuery{
			Term:     args[0],
			Location: searchLocation,
			Radius:   searchRadius,
			Limit:    searchLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.SearchResponse{Businesses: businesses})
	},
}

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the snapshot of the most recent search",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(cfgFile)
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		defer logger.Sync()

		logger.Debug("reading snapshot",
			zap.String("backend", cfg.Snapshot.Backend),
			zap.String("path", cfg.Snapshot.Path),
		)

		store, err := storage.Open(cfg.Snapshot)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer store.Close()

		return printLatest(cmd.OutOrStdout(), store)
	},
}

// printLatest writes the stored snapshot document as indented JSON
func printLatest(w io.Writer, store storage.SnapshotStore) error {
	result, ok := store.Latest()
	if !ok {
		return errNoSnapshot
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var errNoSnapshot = errors.New("no search snapshot recorded yet")

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	rootCmd.Flags().BoolVarP(&showVer, "version", "v", false, "show version")

	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "search location (default from config)")
	searchCmd.Flags().StringVarP(&searchRadius, "radius", "r", "", "advisory search radius in miles")
	searchCmd.Flags().StringVarP(&searchLimit, "limit", "n", "", "maximum number of businesses")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(lastCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildSearchService wires providers, aggregator and snapshot store
func buildSearchService(cfg *config.Config) (*search.Service, storage.SnapshotStore, error) {
	store, err := storage.Open(cfg.Snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}

	adapters := search.NewAdapters(cfg)
	fetchers := make([]search.Fetcher, 0, len(adapters))
	for _, a := range adapters {
		fetchers = append(fetchers, a)
	}

	svc := search.NewService(search.NewAggregator(fetchers...), store, cfg.Search)
	return svc, store, nil
}

func startServer(cfg *config.Config) error {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, store, err := buildSearchService(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	apiHandler := handler.New(cfg, svc, assistant.NewClient(cfg.Assistant))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}
