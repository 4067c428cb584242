package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"credfill/internal/attest"
	"credfill/internal/config"
	"credfill/internal/detect"
	"credfill/internal/logging"
	"credfill/internal/profile"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "credfill",
	Short: "credfill - credentialing form autofill and change review",
	Long: `credfill keeps a provider's credentialing forms in sync with their
reference profile. It autofills payer enrollment forms from the profile,
detects edits that drift away from it, and walks the provider through
reviewing and attesting to every change.

Run without arguments to open the interactive panel.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		if err := logging.Initialize(home, cfg.Logging); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the interactive panel
		return runPanel()
	},
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Open the interactive autofill panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPanel()
	},
}

var attestSummary bool

var attestCmd = &cobra.Command{
	Use:   "attest",
	Short: "Open the attestation dashboard",
	Long: `Opens the attestation queue: externally sourced profile updates the
provider must approve or revert before re-attesting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttest()
	},
}

var detectForm string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect changes in a form snapshot against the reference profile",
	Long: `Reads a YAML form snapshot (field key to value) and prints every field
whose value differs from the reference profile after normalization.
Exits non-zero when changes are found, so scripts can branch on the result.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(detectForm)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the reference profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := loadProfile()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(ref)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadProfile() (*profile.ReferenceProfile, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.ProfilePath == "" {
		return profile.Demo(), nil
	}
	return profile.Load(cfg.ProfilePath)
}

func runDetect(formPath string) error {
	if formPath == "" {
		return fmt.Errorf("--form is required")
	}
	data, err := os.ReadFile(formPath)
	if err != nil {
		return fmt.Errorf("read form snapshot: %w", err)
	}
	var snapshot map[string]string
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("parse form snapshot: %w", err)
	}

	ref, err := loadProfile()
	if err != nil {
		return err
	}

	changes := detect.Detect(snapshot, ref)
	logging.Get(logging.CategoryDetect).Info("snapshot %s: %d change(s)", formPath, len(changes))
	if changes == nil {
		fmt.Println("No changes detected.")
		return nil
	}
	for _, c := range changes {
		prev := detect.PreviousValue(c, ref)
		if c.NewLocation {
			fmt.Printf("%-20s %-24s current=%q (new location)\n",
				c.Key.String(), c.DisplayName, c.CurrentValue)
			continue
		}
		fmt.Printf("%-20s %-24s current=%q previous=%q\n",
			c.Key.String(), c.DisplayName, c.CurrentValue, prev)
	}
	// Non-zero exit so callers can branch on "changes found".
	return fmt.Errorf("%d change(s) detected", len(changes))
}

func runAttestSummary(q *attest.Queue) {
	counts := q.CategoryCounts()
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Printf("%-36s %d\n", c, counts[c])
	}
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	detectCmd.Flags().StringVar(&detectForm, "form", "", "path to a YAML form snapshot")
	attestCmd.Flags().BoolVar(&attestSummary, "summary", false, "print category counts instead of opening the dashboard")

	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(attestCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(profileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
