// Package protocol defines the event envelope exchanged over player
// connections and the payload of every inbound and outbound event.
package protocol

// Inbound client -> server events
const (
	EventJoinGame       = "joinGame"
	EventGPSUpdate      = "gpsUpdate"
	EventPositionUpdate = "positionUpdate"
	EventFireWeapon     = "fireWeapon"
	EventRespawn        = "respawn"
	EventSwitchWeapon   = "switchWeapon"
)

// Outbound server -> client events
const (
	EventServerStatus    = "serverStatus"
	EventPlayerJoined    = "playerJoined"
	EventPlayerCount     = "playerCount"
	EventPlayerLeft      = "playerLeft"
	EventShotFired       = "shotFired"
	EventPlayerKilled    = "playerKilled"
	EventPlayerRespawned = "playerRespawned"
	EventWeaponChanged   = "weaponChanged"
	// EventPositionUpdate is relayed outbound under the same name
)

// Message is one outbound event before encoding
type Message struct {
	Event string
	Data  any
}

// Envelope is one decoded inbound frame; Data is still codec-encoded
type Envelope struct {
	Event string
	Data  []byte
}
