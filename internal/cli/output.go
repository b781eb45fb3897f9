package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mcoot/battlerelay/internal/api/response"
	"github.com/mcoot/battlerelay/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Status:
		o.printStatus(v)
	case response.Players:
		o.printPlayers(v)
	case response.PlayerDetail:
		o.printPlayer(v.Player)
	case response.Weapons:
		o.printWeapons(v)
	case response.Weapon:
		o.printWeapon(v.ID, v.Weapon)
	case response.AntiCheat:
		o.printAntiCheat(v.Data)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printStatus(s response.Status) {
	fmt.Fprintf(o.w, "Status: %s\n", s.Status)
	fmt.Fprintf(o.w, "Version: %s\n", s.Version)
	fmt.Fprintf(o.w, "Mode: %s\n", s.Mode)
	fmt.Fprintf(o.w, "Players: %d\n", s.Players)
	fmt.Fprintf(o.w, "Uptime: %.0fs\n", s.Uptime)
}

func (o *Output) printPlayers(p response.Players) {
	fmt.Fprintf(o.w, "Players: %d (red %d, blue %d)\n", p.Total, p.Red, p.Blue)
	for _, player := range p.Players {
		state := "alive"
		if !player.Alive {
			state = "down"
		}
		fmt.Fprintf(o.w, "  - %s (%s) [%s] %d hp, %s, %d/%d K/D, %s\n",
			player.Name, player.ID, player.Team, player.Health, state, player.Kills, player.Deaths, player.Weapon)
	}
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Team: %s\n", p.Team)
	fmt.Fprintf(o.w, "Health: %d\n", p.Health)
	fmt.Fprintf(o.w, "Kills: %d\n", p.Kills)
	fmt.Fprintf(o.w, "Deaths: %d\n", p.Deaths)
	fmt.Fprintf(o.w, "Weapon: %s\n", p.Weapon)
	if p.Position != nil {
		fmt.Fprintf(o.w, "Position: %.6f, %.6f\n", p.Position.Latitude, p.Position.Longitude)
	}
}

func (o *Output) printWeapons(w response.Weapons) {
	ids := make([]string, 0, len(w.Weapons))
	for id := range w.Weapons {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	fmt.Fprintf(o.w, "Default: %s\n", w.DefaultWeapon)
	for _, id := range ids {
		o.printWeapon(id, w.Weapons[model.WeaponID(id)])
	}
}

func (o *Output) printWeapon(id string, spec model.WeaponSpec) {
	fmt.Fprintf(o.w, "  %-8s %-8s dmg %3d  acc %3d%%  range %3dm  rate %4dms  reload %4dms  mag %d\n",
		id, spec.Name, spec.Damage, spec.Accuracy, spec.Range, spec.FireRate, spec.ReloadTime, spec.MaxAmmo)
}

func (o *Output) printAntiCheat(a response.AntiCheatData) {
	fmt.Fprintf(o.w, "System: %s\n", a.System)
	fmt.Fprintf(o.w, "Suspicious activities: %d\n", a.SuspiciousActivities)
	fmt.Fprintf(o.w, "Rate limits: %d\n", a.RateLimits)
	fmt.Fprintf(o.w, "Last cleanup: %s\n", a.LastCleanup)
}
