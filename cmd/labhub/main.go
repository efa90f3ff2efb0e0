// Package main is the entry point for the labhub bridge service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/verustcode/consts"
	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/server"
	"github.com/verustcode/verustcode/pkg/logger"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

var configPath string
var cacheDir string

var rootCmd = &cobra.Command{
	Use:   "labhub",
	Short: "labhub - mirrors fork pull requests from Hub to Lab",
	Long: `labhub listens for Hub (GitHub) webhooks, mirrors fork-originated pull
request branches into Lab (GitLab) so their pipelines run there, and relays
PR comment commands like "retry" into Lab pipeline-control API calls.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the labhub server",
	Run:   runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("labhub %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("bindto", "", "server bind address (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().StringVar(&cacheDir, "cache-dir", "/var/cache/labhub/repos", "directory to clone base repositories into")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	consts.SetStartedAt(time.Now())

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if bindTo, _ := cmd.Flags().GetString("bindto"); bindTo != "" {
		cfg.Server.BindTo = bindTo
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting labhub", zap.String("version", Version))

	srv, err := server.New(cfg, cacheDir)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	logger.Info("labhub server is running", zap.String("address", cfg.Server.BindTo))

	srv.WaitForShutdown()

	logger.Info("labhub stopped")
}
