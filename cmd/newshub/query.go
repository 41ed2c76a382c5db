package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"news_hub/internal/dispatch"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var flagPayload string

var queryCmd = &cobra.Command{
	Use:   "query <action>",
	Short: "Dispatch a single request in-process and print the response",
	Example: `  newshub query get_latest_news --payload '{"category":"tech","limit":3}'
  newshub query search_news --payload '{"query":"golang"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&flagPayload, "payload", "p", "", "request payload as a JSON object")
}

func runQuery(cmd *cobra.Command, args []string) error {
	var payload json.RawMessage
	if flagPayload != "" {
		if !json.Valid([]byte(flagPayload)) {
			return fmt.Errorf("payload is not valid JSON")
		}
		payload = json.RawMessage(flagPayload)
	}

	a, err := buildApp(cmd.Context(), os.Stderr)
	if err != nil {
		return err
	}

	resp := a.dispatcher.Dispatch(cmd.Context(), dispatch.Envelope{
		ID:      uuid.NewString(),
		Type:    dispatch.TypeRequest,
		Action:  args[0],
		Payload: payload,
		TS:      time.Now().UTC(),
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if resp.Type == dispatch.TypeError {
		return fmt.Errorf("action %s failed", args[0])
	}
	return nil
}
