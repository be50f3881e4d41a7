// pkg/core/battle.go
package core

import "time"

// Battle represents a recorded battle
type Battle struct {
	ID         uint          `json:"id"`
	UUID       string        `json:"uuid"`
	Name       string        `json:"name"`
	SystemName string        `json:"systemName"`
	SystemType string        `json:"systemType"`
	Attacker   string        `json:"attacker"`
	Defender   string        `json:"defender"`
	Seed       int64         `json:"seed"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	Rounds     int           `json:"rounds"`
	Victor     string        `json:"victor"` // empty when no side won
	Stalemate  bool          `json:"stalemate"`
	Tag        string        `json:"tag"`
	Summary    []SideSummary `json:"summary,omitempty"`

	ExtensionVersion string `json:"extensionVersion"`
}

// SideSummary is one owner's aggregate outcome of a battle.
type SideSummary struct {
	Owner           string  `json:"owner"`
	StacksDestroyed int     `json:"stacksDestroyed"`
	ShipsDestroyed  int     `json:"shipsDestroyed"`
	ShipsRetreated  int     `json:"shipsRetreated"`
	DamageSustained float64 `json:"damageSustained"`
}

// Duration returns the wall-clock time the battle took to resolve.
func (b Battle) Duration() time.Duration {
	if b.EndTime.IsZero() || b.EndTime.Before(b.StartTime) {
		return 0
	}
	return b.EndTime.Sub(b.StartTime)
}

// Combatant represents a stack taking part in a battle.
// StackID is the engine-assigned ID, unique within one battle.
type Combatant struct {
	ID         uint     `json:"id"`
	StackID    int      `json:"stackId"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"` // ship, monster, colony
	Owner      string   `json:"owner"`
	Home       string   `json:"home,omitempty"`
	Units      int      `json:"units"`
	MaxHits    float64  `json:"maxHits"`
	Shield     float64  `json:"shield"`
	Attack     int      `json:"attack"`
	Defense    int      `json:"defense"`
	Initiative int      `json:"initiative"`
	Start      Position `json:"start"`
}

// StackState is a per-round snapshot of a combatant.
type StackState struct {
	StackID  int       `json:"stackId"`
	Time     time.Time `json:"time"`
	Round    int       `json:"round"`
	Position Position  `json:"position"`
	Units    int       `json:"units"`
	Hits     float64   `json:"hits"`
	Cloaked  bool      `json:"cloaked"`
	InStasis bool      `json:"inStasis"`
}

// UploadMetadata contains battle metadata for upload to a report server
type UploadMetadata struct {
	SystemName string
	BattleName string
	Duration   float64
	Rounds     int
	Victor     string
	Tag        string
}
