package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// BaseURLFromEnv returns the HTTP API base URL from VITALS_HTTP or a default.
func BaseURLFromEnv() string {
	if addr := os.Getenv("VITALS_HTTP"); addr != "" {
		return strings.TrimSuffix(addr, "/")
	}
	return "http://127.0.0.1:8080"
}

// tokenOrEnv resolves the bearer token from the flag value or VITALS_TOKEN.
func tokenOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("VITALS_TOKEN")
}

// doJSON issues a JSON request; when out is non-nil the response body is
// decoded into it. Non-2xx statuses surface the server's error message.
func doJSON(ctx context.Context, method, url, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("server: %s (status %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
