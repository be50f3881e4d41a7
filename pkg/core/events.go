// pkg/core/events.go
package core

import (
	"time"
)

// Missile outcomes reported on MissileEvent.
const (
	MissileImpact    = "impact"
	MissileExpired   = "expired"
	MissileOutranged = "outranged"
	MissileLostLock  = "lost"
	MissileSpent     = "spent" // damage fell off to zero
)

// FireEvent represents a weapon firing event from one stack at another.
type FireEvent struct {
	Time        time.Time `json:"time"`
	Round       int       `json:"round"`
	ShooterID   int       `json:"shooterId"`
	TargetID    int       `json:"targetId"`
	Weapon      string    `json:"weapon"`
	WeaponKind  string    `json:"weaponKind"`
	Shots       int       `json:"shots"`
	Attacks     int       `json:"attacks"`
	Hits        int       `json:"hits"`
	Damage      float64   `json:"damage"`
	UnitsKilled int       `json:"unitsKilled"`
	Distance    int       `json:"distance"`
}

// MissileEvent represents the resolution of a missile salvo.
type MissileEvent struct {
	Time        time.Time `json:"time"`
	Round       int       `json:"round"`
	MissileID   int       `json:"missileId"`
	LauncherID  int       `json:"launcherId"`
	TargetID    int       `json:"targetId"`
	Weapon      string    `json:"weapon"`
	Count       int       `json:"count"`
	Outcome     string    `json:"outcome"`
	Damage      float64   `json:"damage"`
	UnitsKilled int       `json:"unitsKilled"`
	Path        Path      `json:"path"`
}

// DestroyedEvent represents a stack being destroyed.
type DestroyedEvent struct {
	Time    time.Time `json:"time"`
	Round   int       `json:"round"`
	StackID int       `json:"stackId"`
	Kind    string    `json:"kind"`
	Owner   string    `json:"owner"`
	Units   int       `json:"units"` // units present at the start of the battle
}

// RetreatEvent represents a stack leaving the battle.
type RetreatEvent struct {
	Time        time.Time `json:"time"`
	Round       int       `json:"round"`
	StackID     int       `json:"stackId"`
	Owner       string    `json:"owner"`
	Units       int       `json:"units"`
	Destination string    `json:"destination"`
	Forced      bool      `json:"forced"`
}
