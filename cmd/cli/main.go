package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/silverpoint/price-search/config"
	"github.com/silverpoint/price-search/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
	svc     *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "price-search",
	Short: "Price Search CLI - nearby grocery price lookups",
	Long: `A CLI for the nearby price search service. Runs searches through the same
source cascade as the HTTP API, lists the fallback store table, and checks
that the pricing source credentials can obtain an access token.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

// persistentPreRun loads configuration and wires the search service
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = initLogger(cmd.ErrOrStderr())

	svc, err = app.Build(cfg, logger)
	if err != nil {
		return err
	}
	return nil
}

// initLogger writes to stderr so command output stays machine readable
func initLogger(out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.WarnLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && parsedLevel > level {
			level = parsedLevel
		}
	}

	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = out
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: out, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
