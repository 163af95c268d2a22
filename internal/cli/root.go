package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "feedgen",
	Short: "Keyword-filtered, decay-ranked Bluesky feed generator",
	Long:  "Feedgen ingests a post stream, keeps a keyword-matched candidate set scored by time-decayed engagement, and serves the ranked feed skeleton.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
