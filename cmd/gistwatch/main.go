package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gistwatch/gistwatch/internal/config"
	"github.com/gistwatch/gistwatch/internal/gist"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/merge"
	"github.com/gistwatch/gistwatch/internal/service"
	"github.com/gistwatch/gistwatch/internal/state"
	"github.com/gistwatch/gistwatch/internal/version"
)

// Global flags
var (
	cfgFile   string
	logLevel  string
	logFormat string
	apiURL    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gistwatch",
	Short: "Keep named groups of local files synchronized to gists",
	Long: `gistwatch tracks named groups of local files and folders and mirrors each
group into one multi-file gist.

Groups are pushed on demand, on a polling interval, or continuously as
filesystem events arrive. Remote files the tool does not manage are left
untouched.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Config{
			Level:  logger.ParseLevel(logLevel),
			Format: logger.ParseFormat(logFormat),
			Output: os.Stderr,
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gistwatch %s\n", version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gistwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "gist API base URL (default is api.github.com)")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// dataDir is where the history database lives, next to the default config
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gistwatch"), nil
}

// newService wires the full stack: config store, gist client, merge engine,
// push history. Fails when no token is configured.
func newService() (*service.SyncService, *state.Manager, error) {
	store, err := config.NewStore(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	token, err := cfg.APIToken()
	if err != nil {
		return nil, nil, fmt.Errorf("%w; run 'gistwatch token <token>' or set GISTWATCH_TOKEN", err)
	}

	dir, err := dataDir()
	if err != nil {
		return nil, nil, err
	}
	history, err := state.NewManager(dir)
	if err != nil {
		return nil, nil, err
	}

	client := gist.NewClient(apiURL, token)
	svc := service.New(store, merge.NewEngine(client), history)
	return svc, history, nil
}
