package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tubeproxy",
	Short: "YouTube metadata lookup and download proxy",
	Long: `tubeproxy resolves YouTube video metadata through the Data API and
proxies media downloads, either over HTTP (serve) or one-shot from the
command line (resolve).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
}
