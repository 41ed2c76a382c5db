package main

import (
	"os"
	"os/signal"
	"syscall"

	"news_hub/internal/logger"
	"news_hub/internal/stdio"

	"github.com/spf13/cobra"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve newline-delimited envelopes on stdin/stdout",
	Long: `Читает по одному конверту на строку из stdin и пишет по одной строке
ответа в stdout. Логи в этом режиме идут в stderr.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, os.Stderr)
		if err != nil {
			return err
		}

		logger.Log.Info("Serving on stdio")
		defer logger.Log.Info("Stdio stream closed")
		return stdio.Serve(ctx, a.dispatcher, os.Stdin, os.Stdout)
	},
}
