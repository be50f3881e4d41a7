package convert

import (
	"encoding/json"

	"github.com/OCAP2/spacecombat/internal/geo"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

func pointToPosition(p geom.Point) core.Position {
	pos, _ := geo.PositionFromPoint(p)
	return pos
}

// BattleToCore converts a GORM Battle to a core.Battle.
func BattleToCore(b model.Battle) core.Battle {
	var summary []core.SideSummary
	if len(b.Summary) > 0 {
		_ = json.Unmarshal(b.Summary, &summary)
	}
	if len(summary) == 0 {
		summary = nil
	}

	return core.Battle{
		ID:               b.ID,
		UUID:             b.UUID,
		Name:             b.Name,
		SystemName:       b.SystemName,
		SystemType:       b.SystemType,
		Attacker:         b.Attacker,
		Defender:         b.Defender,
		Seed:             b.Seed,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		Rounds:           b.Rounds,
		Victor:           b.Victor,
		Stalemate:        b.Stalemate,
		Tag:              b.Tag,
		Summary:          summary,
		ExtensionVersion: b.ExtensionVersion,
	}
}

// CombatantToCore converts a GORM Combatant to a core.Combatant.
func CombatantToCore(c model.Combatant) core.Combatant {
	return core.Combatant{
		StackID:    c.StackID,
		Name:       c.Name,
		Kind:       c.Kind,
		Owner:      c.Owner,
		Home:       c.Home,
		Units:      c.Units,
		MaxHits:    c.MaxHits,
		Shield:     c.Shield,
		Attack:     c.Attack,
		Defense:    c.Defense,
		Initiative: c.Initiative,
		Start:      pointToPosition(c.StartPosition),
	}
}

// StackStateToCore converts a GORM StackState to a core.StackState.
func StackStateToCore(s model.StackState) core.StackState {
	return core.StackState{
		StackID:  s.StackID,
		Time:     s.Time,
		Round:    s.Round,
		Position: pointToPosition(s.Position),
		Units:    s.Units,
		Hits:     s.Hits,
		Cloaked:  s.Cloaked,
		InStasis: s.InStasis,
	}
}

// FireEventToCore converts a GORM FireEvent to a core.FireEvent.
func FireEventToCore(e model.FireEvent) core.FireEvent {
	return core.FireEvent{
		Time:        e.Time,
		Round:       e.Round,
		ShooterID:   e.ShooterID,
		TargetID:    e.TargetID,
		Weapon:      e.Weapon,
		WeaponKind:  e.WeaponKind,
		Shots:       e.Shots,
		Attacks:     e.Attacks,
		Hits:        e.Hits,
		Damage:      e.Damage,
		UnitsKilled: e.UnitsKilled,
		Distance:    e.Distance,
	}
}

// MissileEventToCore converts a GORM MissileEvent to a core.MissileEvent.
func MissileEventToCore(e model.MissileEvent) core.MissileEvent {
	var path core.Path
	if e.Path.Coordinates().Length() > 0 {
		path = geo.LineStringToPath(e.Path)
	}
	return core.MissileEvent{
		Time:        e.Time,
		Round:       e.Round,
		MissileID:   e.MissileID,
		LauncherID:  e.LauncherID,
		TargetID:    e.TargetID,
		Weapon:      e.Weapon,
		Count:       e.Count,
		Outcome:     e.Outcome,
		Damage:      e.Damage,
		UnitsKilled: e.UnitsKilled,
		Path:        path,
	}
}

// DestroyedEventToCore converts a GORM DestroyedEvent to a core.DestroyedEvent.
func DestroyedEventToCore(e model.DestroyedEvent) core.DestroyedEvent {
	return core.DestroyedEvent{
		Time:    e.Time,
		Round:   e.Round,
		StackID: e.StackID,
		Kind:    e.Kind,
		Owner:   e.Owner,
		Units:   e.Units,
	}
}

// RetreatEventToCore converts a GORM RetreatEvent to a core.RetreatEvent.
func RetreatEventToCore(e model.RetreatEvent) core.RetreatEvent {
	return core.RetreatEvent{
		Time:        e.Time,
		Round:       e.Round,
		StackID:     e.StackID,
		Owner:       e.Owner,
		Units:       e.Units,
		Destination: e.Destination,
		Forced:      e.Forced,
	}
}
