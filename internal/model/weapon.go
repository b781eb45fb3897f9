package model

// WeaponID keys the static weapon table
type WeaponID string

// WeaponSpec describes one weapon's combat parameters.
// Durations are milliseconds; FireRate is the minimum interval between shots.
type WeaponSpec struct {
	Name       string `json:"name" yaml:"name" validate:"required,max=64"`
	Damage     int    `json:"damage" yaml:"damage" validate:"gte=0,lte=100"`
	Accuracy   int    `json:"accuracy" yaml:"accuracy" validate:"gte=0,lte=100"`
	Range      int    `json:"range" yaml:"range" validate:"gte=0"`
	FireRate   int    `json:"fireRate" yaml:"fire_rate" validate:"gte=0"`
	ReloadTime int    `json:"reloadTime" yaml:"reload_time" validate:"gte=0"`
	Ammo       int    `json:"ammo" yaml:"ammo" validate:"gte=0,ltefield=MaxAmmo"`
	MaxAmmo    int    `json:"maxAmmo" yaml:"max_ammo" validate:"gt=0"`
}

// ShotOutcome is the result of resolving one fireWeapon event
type ShotOutcome struct {
	ShooterID ConnectionID
	WeaponID  WeaponID
	TargetID  ConnectionID
	Damage    int
	Hit       bool

	// Filled when the hit caused a death transition
	Killed       bool
	TargetHealth int
}

// DamageResult is the result of applying damage to a session
type DamageResult struct {
	Victim   PlayerSession
	Attacker *PlayerSession // nil for self-damage or unknown attacker
	Died     bool
}
