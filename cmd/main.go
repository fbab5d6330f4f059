package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ai-compass",
	Short: "AI tool catalog with reviews, requests and a community board",
	Long: `AI Compass serves a catalog of AI tools backed by flat JSON documents.

Users, with their community threads, live one file per user. Tools live one
file per tool. Reviews and tool requests each live in a single document.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
