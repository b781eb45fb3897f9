package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
	"github.com/mcoot/battlerelay/internal/session"
)

const joinTimeout = 10 * time.Second

var errQuit = errors.New("quit")

// playerOptions describe the test player relayctl joins as
type playerOptions struct {
	Name    string
	Team    string
	HP      int
	Weapon  string
	Msgpack bool
}

func newConnectCmd() *cobra.Command {
	var opts playerOptions

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join the battle as a test player",
		Long: `Open a player connection, join the battle and print every event received.

Commands are read from stdin, one per line:
  fire [target] [weapon]   fire at a player id (no target is a miss)
  gps <lat> <lon>          send a gpsUpdate
  move <lat> <lon>         send a positionUpdate
  switch <weapon>          change weapon
  respawn                  return to full health
  quit                     disconnect

The connection closes at end of input or on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPlayer(ctx, cmd.InOrStdin(), NewOutput(cfg.Output, cmd.OutOrStdout()), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name (server picks one when empty)")
	cmd.Flags().StringVar(&opts.Team, "team", "red", "Team: red, blue")
	cmd.Flags().IntVar(&opts.HP, "hp", 0, "Starting health (0 means full)")
	cmd.Flags().StringVar(&opts.Weapon, "weapon", "", "Starting weapon (server default when empty)")
	cmd.Flags().BoolVar(&opts.Msgpack, "msgpack", false, "Use the binary msgpack subprotocol")

	return cmd
}

// received is one decoded server event, or the read error that ended the stream
type received struct {
	event string
	data  json.RawMessage
	err   error
}

func runPlayer(ctx context.Context, in io.Reader, out *Output, opts playerOptions) error {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: joinTimeout}
	if opts.Msgpack {
		dialer.Subprotocols = []string{protocol.SubprotocolMsgpack}
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	codec := protocol.ForSubprotocol(conn.Subprotocol())
	frameType := websocket.TextMessage
	if codec.Binary() {
		frameType = websocket.BinaryMessage
	}
	send := func(msg protocol.Message) error {
		frame, err := codec.Encode(msg)
		if err != nil {
			return err
		}
		return conn.WriteMessage(frameType, frame)
	}

	events := make(chan received, 64)
	done := make(chan struct{})
	defer close(done)
	go readEvents(conn, codec, events, done)

	join := protocol.JoinGame{Name: opts.Name, Team: opts.Team, HP: float64(opts.HP), Weapon: opts.Weapon}
	if err := send(protocol.Message{Event: protocol.EventJoinGame, Data: join}); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	me, err := awaitJoin(ctx, events, out, opts.Name)
	if err != nil {
		return err
	}
	out.PrintMessage(fmt.Sprintf("Joined as %s (%s) on team %s", me.Name, me.ID, me.Team))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return closeGracefully(conn)
		case ev := <-events:
			if ev.err != nil {
				return fmt.Errorf("connection lost: %w", ev.err)
			}
			printReceived(out, ev)
		case line, ok := <-lines:
			if !ok {
				return closeGracefully(conn)
			}
			msg, err := parseCommand(line)
			if errors.Is(err, errQuit) {
				return closeGracefully(conn)
			}
			if err != nil {
				out.PrintMessage("error: " + err.Error())
				continue
			}
			if msg.Event == "" {
				continue
			}
			if err := send(msg); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

// awaitJoin prints events until the relay echoes our own playerJoined. The
// greeting names our connection id; relays that omit it are matched on the
// name as the relay stores it.
func awaitJoin(ctx context.Context, events <-chan received, out *Output, name string) (protocol.Player, error) {
	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()

	var self string
	want := storedName(name)
	for {
		select {
		case <-ctx.Done():
			return protocol.Player{}, ctx.Err()
		case <-timer.C:
			return protocol.Player{}, errors.New("timed out waiting to join")
		case ev := <-events:
			if ev.err != nil {
				return protocol.Player{}, fmt.Errorf("connection lost: %w", ev.err)
			}
			printReceived(out, ev)
			switch ev.event {
			case protocol.EventServerStatus:
				var status protocol.ServerStatus
				if err := json.Unmarshal(ev.data, &status); err == nil {
					self = status.PlayerID
				}
			case protocol.EventPlayerJoined:
				var p protocol.Player
				if err := json.Unmarshal(ev.data, &p); err != nil {
					continue
				}
				if self != "" {
					if p.ID == self {
						return p, nil
					}
					continue
				}
				if want == "" || p.Name == want {
					return p, nil
				}
			}
		}
	}
}

// storedName applies the relay's trimming and length cap to a requested name
func storedName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > session.MaxNameLength {
		name = string([]rune(name)[:session.MaxNameLength])
	}
	return name
}

// readEvents decodes frames until the connection fails. Payloads are
// normalised to JSON for display whatever the codec.
func readEvents(conn *websocket.Conn, codec protocol.Codec, events chan<- received, done <-chan struct{}) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case events <- received{err: err}:
			case <-done:
			}
			return
		}
		env, err := codec.Decode(frame)
		if err != nil {
			continue
		}
		data := json.RawMessage(env.Data)
		if codec.Binary() && len(env.Data) > 0 {
			var v any
			if err := codec.Unmarshal(env.Data, &v); err == nil {
				data, _ = json.Marshal(v)
			}
		}
		select {
		case events <- received{event: env.Event, data: data}:
		case <-done:
			return
		}
	}
}

func printReceived(out *Output, ev received) {
	if out.format == "json" {
		line, _ := json.Marshal(struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data,omitempty"`
		}{ev.event, ev.data})
		fmt.Fprintln(out.w, string(line))
		return
	}
	fmt.Fprintf(out.w, "< %s %s\n", ev.event, string(ev.data))
}

func closeGracefully(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return nil
}

// parseCommand turns one input line into an outbound event. Blank lines
// and comments yield an empty message.
func parseCommand(line string) (protocol.Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return protocol.Message{}, nil
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return protocol.Message{}, errQuit

	case "fire":
		if len(args) > 2 {
			return protocol.Message{}, errors.New("usage: fire [target] [weapon]")
		}
		fire := protocol.FireWeapon{}
		if len(args) > 0 {
			fire.TargetID = args[0]
		}
		if len(args) > 1 {
			fire.WeaponID = args[1]
		}
		return protocol.Message{Event: protocol.EventFireWeapon, Data: fire}, nil

	case "gps", "move":
		if len(args) != 2 {
			return protocol.Message{}, fmt.Errorf("usage: %s <lat> <lon>", fields[0])
		}
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return protocol.Message{}, fmt.Errorf("invalid latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return protocol.Message{}, fmt.Errorf("invalid longitude %q", args[1])
		}
		coord := model.Coordinate{Latitude: lat, Longitude: lon, Timestamp: time.Now().UnixMilli()}
		if strings.EqualFold(fields[0], "gps") {
			return protocol.Message{Event: protocol.EventGPSUpdate, Data: coord}, nil
		}
		return protocol.Message{Event: protocol.EventPositionUpdate, Data: protocol.PositionUpdate{Coordinate: &coord}}, nil

	case "switch":
		if len(args) != 1 {
			return protocol.Message{}, errors.New("usage: switch <weapon>")
		}
		return protocol.Message{Event: protocol.EventSwitchWeapon, Data: protocol.SwitchWeapon{WeaponID: args[0]}}, nil

	case "respawn":
		return protocol.Message{Event: protocol.EventRespawn}, nil

	default:
		return protocol.Message{}, fmt.Errorf("unknown command %q", fields[0])
	}
}
