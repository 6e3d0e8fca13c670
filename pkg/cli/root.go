// Package cli provides the command-line interface for Atlasforge
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	projectRoot string
	verbosity   string
	version     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "atlasforge",
	Short: "The asset packaging pipeline for game projects",
	Long: `📦 Atlasforge - Texture packing and incremental packaging for game projects

Atlasforge packs your sprites into shared texture sheets, skips work that
hasn't changed since the last run, and assembles a ready-to-serve web build
of your project.`,

	Run: func(cmd *cobra.Command, args []string) {
		// Check if version flag is set
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("📦 Atlasforge v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: atlasforge.config.json)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	// Add version flag
	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		root, err := filepath.Abs(projectRoot)
		if err == nil {
			projectRoot = root
		}
		viper.AddConfigPath(projectRoot)
		viper.SetConfigName("atlasforge.config")
		viper.SetConfigType("json")
	}

	viper.SetEnvPrefix("ATLASFORGE")
	viper.AutomaticEnv()

	// A missing config file is fine here; commands that need one report
	// the error themselves.
	_ = viper.ReadInConfig()
}
