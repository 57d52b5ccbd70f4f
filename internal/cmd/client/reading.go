package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewReadingCommand constructs the `reading` command group and subcommands.
func NewReadingCommand(baseURL BaseURLFunc) *cobra.Command {
	readingCmd := &cobra.Command{Use: "reading", Short: "Reading operations"}
	readingCmd.AddCommand(
		newReadingSendCommand(baseURL),
		newReadingLatestCommand(baseURL),
		newReadingWatchCommand(baseURL),
	)
	return readingCmd
}

func newReadingSendCommand(baseURL BaseURLFunc) *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send one sensor reading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			token, _ := cmd.Flags().GetString("token")
			pressure, _ := cmd.Flags().GetInt("pressure")
			body := map[string]any{"pressure": pressure}
			if cmd.Flags().Changed("temperature") {
				t, _ := cmd.Flags().GetFloat64("temperature")
				body["temperature"] = t
			}
			if cmd.Flags().Changed("humidity") {
				h, _ := cmd.Flags().GetFloat64("humidity")
				body["humidity"] = h
			}
			target := baseURL() + "/v1/readings"
			if patient != "" {
				target = baseURL() + "/v1/patients/" + url.PathEscape(patient) + "/readings"
			}
			var out map[string]any
			if err := doJSON(cmd.Context(), "POST", target, tokenOrEnv(token), body, &out); err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
		},
	}
	sendCmd.Flags().String("patient", "", "Patient identifier (omit when authenticated)")
	sendCmd.Flags().String("token", "", "Bearer token (or VITALS_TOKEN)")
	sendCmd.Flags().Int("pressure", 0, "Pressure value (required)")
	sendCmd.Flags().Float64("temperature", 0, "Temperature value")
	sendCmd.Flags().Float64("humidity", 0, "Humidity value")
	_ = sendCmd.MarkFlagRequired("pressure")
	return sendCmd
}

func newReadingLatestCommand(baseURL BaseURLFunc) *cobra.Command {
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Fetch the most recent readings, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			limit, _ := cmd.Flags().GetInt("limit")
			target := baseURL() + "/v1/readings/latest"
			if limit > 0 {
				target += fmt.Sprintf("?limit=%d", limit)
			}
			var out []map[string]any
			if err := doJSON(cmd.Context(), "GET", target, tokenOrEnv(token), nil, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range out {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	latestCmd.Flags().String("token", "", "Bearer token (or VITALS_TOKEN)")
	latestCmd.Flags().Int("limit", 0, "Max readings to return (0 = server default)")
	return latestCmd
}

func newReadingWatchCommand(baseURL BaseURLFunc) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream a patient's readings live over SSE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			token, _ := cmd.Flags().GetString("token")
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")

			q := url.Values{}
			if patient != "" {
				q.Set("patientId", patient)
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			target := baseURL() + "/v1/readings/subscribe"
			if len(q) > 0 {
				target += "?" + q.Encode()
			}

			req, err := http.NewRequestWithContext(cmd.Context(), "GET", target, nil)
			if err != nil {
				return err
			}
			if tok := tokenOrEnv(token); tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				var e struct {
					Error string `json:"error"`
				}
				if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
					return fmt.Errorf("server: %s (status %d)", e.Error, resp.StatusCode)
				}
				return fmt.Errorf("server returned status %d", resp.StatusCode)
			}

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(resp.Body)
			n := 0
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				if _, err := fmt.Fprintln(out, strings.TrimPrefix(line, "data: ")); err != nil {
					return err
				}
				n++
				if limit > 0 && n >= limit {
					return nil
				}
			}
			return scanner.Err()
		},
	}
	watchCmd.Flags().String("patient", "", "Patient identifier (omit when authenticated)")
	watchCmd.Flags().String("token", "", "Bearer token (or VITALS_TOKEN)")
	watchCmd.Flags().String("filter", "", "CEL filter (server-side)")
	watchCmd.Flags().Int("limit", 0, "Stop after N readings (0 = infinite)")
	return watchCmd
}
