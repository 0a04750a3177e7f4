package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the server's change feed",
	}
	cmd.AddCommand(newEventsListCommand())
	cmd.AddCommand(newEventsWatchCommand())
	return cmd
}

func newEventsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent events, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := fmt.Sprintf("%s/api/events?limit=%d", serverURL, limit)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			setAuthHeaders(req.Header)

			hc := &http.Client{Timeout: 30 * time.Second}
			resp, err := hc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
			}

			var v interface{}
			if err := json.Unmarshal(body, &v); err != nil {
				fmt.Println(string(body))
				return nil
			}
			printJSON(v)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum events to return")
	return cmd
}

func newEventsWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream events as they happen (Ctrl-C to stop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := streamURL(serverURL)
			if err != nil {
				return err
			}

			header := http.Header{}
			setAuthHeaders(header)
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, header)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
			}
			defer conn.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)
			go func() {
				<-sigCh
				conn.Close()
			}()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for {
				var event map[string]interface{}
				if err := conn.ReadJSON(&event); err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				enc.Encode(event)
			}
		},
	}
}

// streamURL rewrites the server URL to the websocket endpoint.
func streamURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/events/stream"
	return u.String(), nil
}

func setAuthHeaders(h http.Header) {
	if apiKey != "" {
		h.Set("X-API-Key", apiKey)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}
