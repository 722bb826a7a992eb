package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(unrateCmd)
	rootCmd.AddCommand(reportsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills <queue-type-id>",
	Short: "List the current skills of a queue type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queueTypeID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid queue type id %q: %w", args[0], err)
		}
		return performRequest(http.MethodGet, fmt.Sprintf("/skills?queue_type_id=%d", queueTypeID), nil)
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <tenant> <match-id> <outcome>...",
	Short: "Rate a match with one outcome (WIN, DRAW, LOSS) per team",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		matchID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid match id %q: %w", args[1], err)
		}
		outcomes := make([]string, 0, len(args)-2)
		for _, raw := range args[2:] {
			o, err := pickup.ParseOutcome(raw)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, string(o))
		}
		return performRequest(http.MethodPost, "/ratings/rate", map[string]any{
			"tenant_id": args[0],
			"match_id":  matchID,
			"outcomes":  outcomes,
		})
	},
}

var unrateCmd = &cobra.Command{
	Use:   "unrate <tenant> <match-id>",
	Short: "Clear the outcomes of a rated match",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		matchID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid match id %q: %w", args[1], err)
		}
		return performRequest(http.MethodPost, "/ratings/unrate", map[string]any{
			"tenant_id": args[0],
			"match_id":  matchID,
		})
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <tenant> <match-id>",
	Short: "List the pending outcome reports of a match",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		matchID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid match id %q: %w", args[1], err)
		}
		return performRequest(http.MethodGet, fmt.Sprintf("/reports?tenant_id=%s&match_id=%d", args[0], matchID), nil)
	},
}

func performRequest(method, endpoint string, payload any) error {
	url := host + endpoint
	if dryRun {
		url += querySeparator(endpoint) + "dry_run=true"
	}
	fmt.Printf("Making %s request to %s\n", method, url)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func querySeparator(endpoint string) string {
	if strings.Contains(endpoint, "?") {
		return "&"
	}
	return "?"
}
