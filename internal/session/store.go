// Package session holds the mutable per-player state of every joined
// connection. All access goes through one RWMutex; reads hand out copies.
package session

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mcoot/battlerelay/internal/dependencies/clock"
	"github.com/mcoot/battlerelay/internal/dependencies/random"
	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/weapons"
)

const (
	placeholderPrefix   = "Player_"
	placeholderAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	placeholderLength   = 5

	// MaxNameLength bounds display names in runes; longer names are cut
	MaxNameLength = 32
)

// Store is the in-memory Player Session Store
type Store struct {
	mu       sync.RWMutex
	sessions map[model.ConnectionID]*model.PlayerSession

	weapons *weapons.Table
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates an empty store
func New(table *weapons.Table, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[model.ConnectionID]*model.PlayerSession),
		weapons:  table,
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("component", "session-store")),
	}
}

// Create builds a session for a join request. Invalid or missing values are
// defaulted, never rejected. Joining again on the same connection replaces
// the previous session.
func (s *Store) Create(id model.ConnectionID, req model.JoinRequest) model.PlayerSession {
	session := &model.PlayerSession{
		ConnectionID:  id,
		DisplayName:   s.displayName(req.Name),
		Team:          model.ParseTeam(req.Team),
		Health:        initialHealth(req.HP),
		CurrentWeapon: s.weaponOrDefault(req.Weapon),
		JoinedAt:      s.clock.Now(),
	}

	s.mu.Lock()
	_, replaced := s.sessions[id]
	s.sessions[id] = session
	out := session.Clone()
	s.mu.Unlock()

	if replaced {
		s.logger.Info("session replaced by rejoin", slog.String("connection_id", string(id)))
	}
	return out
}

// Get returns a copy of a session
func (s *Store) Get(id model.ConnectionID) (model.PlayerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.PlayerSession{}, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// UpdatePosition records the last known coordinate. An unknown id is the
// disconnect/in-flight race: it is logged and reported, nothing changes.
func (s *Store) UpdatePosition(id model.ConnectionID, coord model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		s.logger.Debug("position update for unknown session", slog.String("connection_id", string(id)))
		return model.ErrSessionNotFound
	}
	session.Position = &coord
	return nil
}

// ApplyDamage lowers the victim's health, clamped at zero. Only the
// transition from alive to down counts as a death: it bumps the victim's
// deaths and, when the attacker is another joined session, the attacker's
// kills. Damage against a session that is already down is accepted but
// credits nothing.
func (s *Store) ApplyDamage(victimID model.ConnectionID, amount int, attackerID model.ConnectionID) (model.DamageResult, error) {
	if amount < 0 {
		amount = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	victim, ok := s.sessions[victimID]
	if !ok {
		return model.DamageResult{}, model.ErrSessionNotFound
	}

	wasAlive := victim.Alive()
	victim.Health = model.ClampHealth(victim.Health - amount)
	died := wasAlive && !victim.Alive()

	var attacker *model.PlayerSession
	if attackerID != "" && attackerID != victimID {
		if a, ok := s.sessions[attackerID]; ok {
			attacker = a
		}
	}

	if died {
		victim.Deaths++
		if attacker != nil {
			attacker.Kills++
		}
	}

	result := model.DamageResult{Victim: victim.Clone(), Died: died}
	if attacker != nil {
		a := attacker.Clone()
		result.Attacker = &a
	}
	return result, nil
}

// Respawn restores a session to full health
func (s *Store) Respawn(id model.ConnectionID) (model.PlayerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.PlayerSession{}, model.ErrSessionNotFound
	}
	session.Health = model.MaxHealth
	return session.Clone(), nil
}

// SetWeapon changes a session's current weapon
func (s *Store) SetWeapon(id model.ConnectionID, weapon model.WeaponID) (model.PlayerSession, error) {
	if !s.weapons.Has(weapon) {
		return model.PlayerSession{}, model.ErrInvalidWeapon
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.PlayerSession{}, model.ErrSessionNotFound
	}
	session.CurrentWeapon = weapon
	return session.Clone(), nil
}

// Remove deletes a session and returns its last state
func (s *Store) Remove(id model.ConnectionID) (model.PlayerSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return model.PlayerSession{}, false
	}
	delete(s.sessions, id)
	return session.Clone(), true
}

// Count returns the number of live sessions
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns a point-in-time copy of every session, oldest join first
func (s *Store) Snapshot() []model.PlayerSession {
	s.mu.RLock()
	out := make([]model.PlayerSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnectionID < out[j].ConnectionID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (s *Store) displayName(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return placeholderPrefix + s.random.String(placeholderLength, placeholderAlphabet)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

func (s *Store) weaponOrDefault(id model.WeaponID) model.WeaponID {
	if id != "" && s.weapons.Has(id) {
		return id
	}
	return s.weapons.DefaultWeapon()
}

// initialHealth treats a missing or non-positive hp as full health
func initialHealth(hp int) int {
	if hp <= 0 {
		return model.MaxHealth
	}
	return model.ClampHealth(hp)
}
