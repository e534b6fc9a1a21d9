package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Amazon Image Harvester - extract product imagery from spreadsheets",
	Long: `The harvester loads a public Google Sheet of Amazon product links, detects
which column holds the links and which holds the palette grouping, and asks a
search-grounded Gemini model for each product's title and high-resolution
image URLs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
