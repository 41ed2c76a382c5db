package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "newshub",
	Short: "RSS/Atom news aggregation service",
	Long: `newshub собирает статьи из настроенных RSS/Atom лент и отдаёт их
через конверты запрос/ответ по HTTP, websocket или stdio.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (json, yaml or toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stdioCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// .env необязателен
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
