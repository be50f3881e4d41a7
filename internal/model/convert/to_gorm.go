// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/spacecombat/internal/geo"
	"github.com/OCAP2/spacecombat/internal/model"
	"github.com/OCAP2/spacecombat/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// summaryToJSON converts per-owner totals to datatypes.JSON for DB storage.
func summaryToJSON(summary []core.SideSummary) datatypes.JSON {
	if len(summary) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(summary)
	return datatypes.JSON(data)
}

// pathToLineString converts a missile path; paths shorter than two points
// become an empty LineString.
func pathToLineString(p core.Path) geom.LineString {
	ls, err := geo.PathToLineString(p)
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// CoreToBattle converts a core.Battle to a GORM model.Battle.
func CoreToBattle(b core.Battle) model.Battle {
	m := model.Battle{
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
		ExtensionVersion: b.ExtensionVersion,
		Summary:          summaryToJSON(b.Summary),
	}
	m.ID = b.ID
	return m
}

// CoreToCombatant converts a core.Combatant to a GORM model.Combatant.
func CoreToCombatant(c core.Combatant) model.Combatant {
	return model.Combatant{
		StackID:       c.StackID,
		Name:          c.Name,
		Kind:          c.Kind,
		Owner:         c.Owner,
		Home:          c.Home,
		Units:         c.Units,
		MaxHits:       c.MaxHits,
		Shield:        c.Shield,
		Attack:        c.Attack,
		Defense:       c.Defense,
		Initiative:    c.Initiative,
		StartPosition: geo.PointFromPosition(c.Start),
	}
}

// CoreToStackState converts a core.StackState to a GORM model.StackState.
func CoreToStackState(s core.StackState) model.StackState {
	return model.StackState{
		Time:     s.Time,
		Round:    s.Round,
		StackID:  s.StackID,
		Position: geo.PointFromPosition(s.Position),
		Units:    s.Units,
		Hits:     s.Hits,
		Cloaked:  s.Cloaked,
		InStasis: s.InStasis,
	}
}

// CoreToFireEvent converts a core.FireEvent to a GORM model.FireEvent.
func CoreToFireEvent(e core.FireEvent) model.FireEvent {
	return model.FireEvent{
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

// CoreToMissileEvent converts a core.MissileEvent to a GORM model.MissileEvent.
func CoreToMissileEvent(e core.MissileEvent) model.MissileEvent {
	return model.MissileEvent{
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
		Path:        pathToLineString(e.Path),
	}
}

// CoreToDestroyedEvent converts a core.DestroyedEvent to a GORM model.DestroyedEvent.
func CoreToDestroyedEvent(e core.DestroyedEvent) model.DestroyedEvent {
	return model.DestroyedEvent{
		Time:    e.Time,
		Round:   e.Round,
		StackID: e.StackID,
		Kind:    e.Kind,
		Owner:   e.Owner,
		Units:   e.Units,
	}
}

// CoreToRetreatEvent converts a core.RetreatEvent to a GORM model.RetreatEvent.
func CoreToRetreatEvent(e core.RetreatEvent) model.RetreatEvent {
	return model.RetreatEvent{
		Time:        e.Time,
		Round:       e.Round,
		StackID:     e.StackID,
		Owner:       e.Owner,
		Units:       e.Units,
		Destination: e.Destination,
		Forced:      e.Forced,
	}
}
