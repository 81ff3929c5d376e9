package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rosterx/internal/config"
	"rosterx/internal/logging"
)

var (
	// Global flags
	verbose    bool
	batchSize  int
	configPath string

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
	runID  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rosterx <input> <template> <output>",
	Short: "Extract provider roster updates from emails into a spreadsheet",
	Long: `rosterx reads roster update emails (.eml), asks a language model for the
seventeen roster fields of each one, and writes one row per email below the
header row of a spreadsheet template.

<input> is one email file or a directory of them. <template> is an .xlsx file
whose first row holds the column titles; it is never modified. <output> is the
.xlsx file to create or overwrite.

Model settings come from --config (YAML) and the environment:
  GEMINI_API_KEY, OPENAI_API_KEY, ROSTERX_PROVIDER, ROSTERX_MODEL, ROSTERX_BASE_URL
A .env file in the working directory is loaded first. ROSTERX_PROVIDER=rules
runs offline with built-in patterns.`,
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		base, err := logging.New(logging.Options{
			Verbose: verbose,
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			File:    cfg.Logging.File,
		})
		if err != nil {
			return err
		}
		runID = uuid.NewString()
		logger = logging.WithRun(base, runID)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runExtract,
}

func init() {
	rootCmd.Flags().IntVarP(&batchSize, "batch", "b", 1, "Number of emails sent to the model per call")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging, including raw model output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
