package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/battlerelay/internal/protocol"
)

func newEventsCmd() *cobra.Command {
	var (
		jsonOutput bool
		only       []string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream the spectator feed",
		Long: `Connect to the relay's spectator SSE endpoint and stream events in real-time.

Events mirror what players receive:
  - playerJoined, playerLeft, playerCount
  - positionUpdate
  - shotFired, playerKilled, playerRespawned
  - weaponChanged

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), jsonOutput, only)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Only print these event names")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, jsonOutput bool, only []string) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Connected to spectator feed")
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}

	err = readSSE(resp.Body, func(event, data string) {
		if len(wanted) > 0 && !wanted[event] {
			return
		}
		printEvent(w, event, data, jsonOutput)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// readSSE calls fn for every complete event in the stream. Comment lines
// are skipped and multi-line data is joined with newlines.
func readSSE(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				fn(currentEvent, strings.Join(dataLines, "\n"))
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		jsonData, _ := json.Marshal(SSEEvent{Time: now, Event: event, Data: data})
		fmt.Fprintln(w, string(jsonData))
		return
	}

	fmt.Fprintf(w, "[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), event, summarizeEvent(event, data))
}

// summarizeEvent renders the common battle events as one readable line and
// falls back to the raw payload, truncated, for everything else
func summarizeEvent(event, data string) string {
	var p struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Team       string `json:"team"`
		HP         int    `json:"hp"`
		Count      int    `json:"count"`
		PlayerID   string `json:"playerId"`
		ShooterID  string `json:"shooterId"`
		TargetID   string `json:"targetId"`
		WeaponID   string `json:"weaponId"`
		Damage     int    `json:"damage"`
		Hit        bool   `json:"hit"`
		VictimName string `json:"victimName"`
		KillerName string `json:"killerName"`
	}
	if err := json.Unmarshal([]byte(data), &p); err == nil {
		switch event {
		case protocol.EventPlayerJoined:
			return fmt.Sprintf("%s (%s) joined team %s", p.Name, p.ID, p.Team)
		case protocol.EventPlayerRespawned:
			return fmt.Sprintf("%s (%s) respawned with %d hp", p.Name, p.ID, p.HP)
		case protocol.EventPlayerLeft:
			return fmt.Sprintf("%s (%s) left", p.Name, p.PlayerID)
		case protocol.EventPlayerCount:
			return fmt.Sprintf("%d players", p.Count)
		case protocol.EventShotFired:
			if !p.Hit {
				return fmt.Sprintf("%s fired %s and missed", p.ShooterID, p.WeaponID)
			}
			return fmt.Sprintf("%s hit %s with %s for %d", p.ShooterID, p.TargetID, p.WeaponID, p.Damage)
		case protocol.EventPlayerKilled:
			if p.KillerName == "" {
				return fmt.Sprintf("%s is down (%s)", p.VictimName, p.WeaponID)
			}
			return fmt.Sprintf("%s killed %s with %s", p.KillerName, p.VictimName, p.WeaponID)
		case protocol.EventWeaponChanged:
			return fmt.Sprintf("%s switched to %s", p.PlayerID, p.WeaponID)
		}
	}

	display := strings.ReplaceAll(data, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	return display
}
