package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/spacecombat/pkg/core"
)

// BattleExport is the root JSON structure of a battle report.
type BattleExport struct {
	ExtensionVersion string          `json:"extensionVersion"`
	BattleName       string          `json:"battleName"`
	UUID             string          `json:"uuid"`
	SystemName       string          `json:"systemName"`
	SystemType       string          `json:"systemType"`
	Attacker         string          `json:"attacker"`
	Defender         string          `json:"defender"`
	Seed             int64           `json:"seed"`
	StartTime        string          `json:"startTime"`
	Rounds           int             `json:"rounds"`
	Victor           string          `json:"victor"`
	Stalemate        bool            `json:"stalemate"`
	Tag              string          `json:"tag,omitempty"`
	Combatants       []CombatantJSON `json:"combatants"`
	Events           [][]any         `json:"events"`
}

// CombatantJSON represents a stack and its history.
type CombatantJSON struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Owner      string  `json:"owner"`
	Units      int     `json:"units"`
	MaxHits    float64 `json:"maxHits"`
	Fate       string  `json:"fate"`
	Positions  [][]any `json:"positions"`
	RoundsShot [][]any `json:"roundsShot"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// exportJSON writes the battle data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	battleName := strings.ReplaceAll(b.battle.Name, " ", "_")
	battleName = strings.ReplaceAll(battleName, ":", "_")
	timestamp := b.battle.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", battleName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", battleName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() BattleExport {
	export := BattleExport{
		ExtensionVersion: b.battle.ExtensionVersion,
		BattleName:       b.battle.Name,
		UUID:             b.battle.UUID,
		SystemName:       b.battle.SystemName,
		SystemType:       b.battle.SystemType,
		Attacker:         b.battle.Attacker,
		Defender:         b.battle.Defender,
		Seed:             b.battle.Seed,
		StartTime:        b.battle.StartTime.Format(timeLayout),
		Rounds:           b.battle.Rounds,
		Victor:           b.battle.Victor,
		Stalemate:        b.battle.Stalemate,
		Tag:              b.battle.Tag,
		Combatants:       make([]CombatantJSON, 0, len(b.order)),
		Events:           make([][]any, 0),
	}

	for _, id := range b.order {
		record := b.combatants[id]
		c := record.Combatant
		entity := CombatantJSON{
			ID:         c.StackID,
			Name:       c.Name,
			Kind:       c.Kind,
			Owner:      c.Owner,
			Units:      c.Units,
			MaxHits:    c.MaxHits,
			Fate:       "survived",
			Positions:  make([][]any, 0, len(record.States)+1),
			RoundsShot: make([][]any, 0, len(record.FireEvents)),
		}

		// Format: [round, [x, y], units, hits]
		entity.Positions = append(entity.Positions, []any{0, []int{c.Start.X, c.Start.Y}, c.Units, c.MaxHits})
		for _, state := range record.States {
			entity.Positions = append(entity.Positions, []any{
				state.Round,
				[]int{state.Position.X, state.Position.Y},
				state.Units,
				state.Hits,
			})
		}

		// Format: [round, targetId, weapon, damage, unitsKilled]
		for _, fired := range record.FireEvents {
			entity.RoundsShot = append(entity.RoundsShot, []any{
				fired.Round,
				fired.TargetID,
				fired.Weapon,
				fired.Damage,
				fired.UnitsKilled,
			})
		}

		if d := record.Destroyed; d != nil {
			entity.Fate = "destroyed"
			// Format: [round, "destroyed", stackId, kind]
			export.Events = append(export.Events, []any{d.Round, "destroyed", d.StackID, d.Kind})
		}
		if r := record.RetreatedTo; r != nil {
			entity.Fate = "retreated"
			// Format: [round, "retreated", stackId, destination, forced]
			export.Events = append(export.Events, []any{r.Round, "retreated", r.StackID, r.Destination, r.Forced})
		}

		export.Combatants = append(export.Combatants, entity)
	}

	// Format: [round, "missile", launcherId, targetId, outcome, damage, [[x, y], ...]]
	for _, m := range b.missileEvents {
		path := make([][]float64, 0, len(m.Path))
		for _, p := range m.Path {
			path = append(path, []float64{p.X, p.Y})
		}
		export.Events = append(export.Events, []any{
			m.Round,
			"missile",
			m.LauncherID,
			m.TargetID,
			m.Outcome,
			m.Damage,
			path,
		})
	}

	return export
}

// GetExportedFilePath returns the path of the last export, empty before EndBattle.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the upload metadata of the current battle.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.battle == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		SystemName: b.battle.SystemName,
		BattleName: b.battle.Name,
		Duration:   b.battle.Duration().Seconds(),
		Rounds:     b.battle.Rounds,
		Victor:     b.battle.Victor,
		Tag:        b.battle.Tag,
	}
}

func writeJSON(path string, data BattleExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data BattleExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
