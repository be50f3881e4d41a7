package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&RecorderInfo{},
	&RecorderPerformance{},
	&Battle{},
	&Combatant{},
	&StackState{},
	&FireEvent{},
	&MissileEvent{},
	&DestroyedEvent{},
	&RetreatEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderInfo describes the recorder instance owning the database
type RecorderInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

// RecorderPerformance is the model for recorder performance metrics
type RecorderPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	BattleID            uint              `json:"battleId" gorm:"index:idx_perf_battle_id"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RecorderPerformance) TableName() string {
	return "recorder_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Combatants      uint16 `json:"combatants"`
	StackStates     uint16 `json:"stackStates"`
	FireEvents      uint16 `json:"fireEvents"`
	MissileEvents   uint16 `json:"missileEvents"`
	DestroyedEvents uint16 `json:"destroyedEvents"`
	RetreatEvents   uint16 `json:"retreatEvents"`
}

////////////////////////
// BATTLE DATA
////////////////////////

// Battle is the main model for a recorded battle
type Battle struct {
	gorm.Model
	UUID             string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name             string         `json:"name" gorm:"size:200"`
	SystemName       string         `json:"systemName" gorm:"size:64"`
	SystemType       string         `json:"systemType" gorm:"size:32"`
	Attacker         string         `json:"attacker" gorm:"size:64"`
	Defender         string         `json:"defender" gorm:"size:64"`
	Seed             int64          `json:"seed"`
	StartTime        time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_battle_start"`
	EndTime          time.Time      `json:"endTime" gorm:"type:timestamptz"`
	Rounds           int            `json:"rounds"`
	Victor           string         `json:"victor" gorm:"size:64"`
	Stalemate        bool           `json:"stalemate" gorm:"default:false"`
	Tag              string         `json:"tag" gorm:"size:127"`
	ExtensionVersion string         `json:"extensionVersion" gorm:"size:64"`
	Summary          datatypes.JSON `json:"summary" gorm:"type:jsonb;default:'[]'"` // per-owner totals
}

func (*Battle) TableName() string {
	return "battles"
}

// Combatant is a stack that took part in a battle
// Uses composite primary key (BattleID, StackID) - StackID is the engine-assigned ID
type Combatant struct {
	BattleID      uint       `json:"battleId" gorm:"primaryKey;autoIncrement:false"`
	StackID       int        `json:"stackId" gorm:"primaryKey;autoIncrement:false"`
	Battle        Battle     `gorm:"foreignkey:BattleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt     time.Time  `json:"createdAt"`
	Name          string     `json:"name" gorm:"size:64"`
	Kind          string     `json:"kind" gorm:"size:16"`  // ship, monster, colony
	Owner         string     `json:"owner" gorm:"size:64"` // empire name, "monsters" or "neutral"
	Home          string     `json:"home" gorm:"size:64"`
	Units         int        `json:"units"`
	MaxHits       float64    `json:"maxHits"`
	Shield        float64    `json:"shield"`
	Attack        int        `json:"attack"`
	Defense       int        `json:"defense"`
	Initiative    int        `json:"initiative"`
	StartPosition geom.Point `json:"startPosition"`
}

func (*Combatant) TableName() string {
	return "combatants"
}

// StackState is a per-round snapshot of a combatant
type StackState struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time  `json:"time" gorm:"type:timestamptz;"`
	BattleID uint       `json:"battleId" gorm:"index:idx_stackstate_battle_id"`
	Battle   Battle     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Round    int        `json:"round" gorm:"index:idx_stackstate_round"`
	StackID  int        `json:"stackId" gorm:"index:idx_stackstate_stack_id"`
	Position geom.Point `json:"position"`
	Units    int        `json:"units"`
	Hits     float64    `json:"hits"`
	Cloaked  bool       `json:"cloaked" gorm:"default:false"`
	InStasis bool       `json:"inStasis" gorm:"default:false"`
}

func (*StackState) TableName() string {
	return "stack_states"
}

// FireEvent represents one direct-fire resolution
type FireEvent struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"type:timestamptz;"`
	BattleID    uint      `json:"battleId" gorm:"index:idx_fireevent_battle_id"`
	Battle      Battle    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Round       int       `json:"round" gorm:"index:idx_fireevent_round"`
	ShooterID   int       `json:"shooterId" gorm:"index:idx_fireevent_shooter_id"`
	TargetID    int       `json:"targetId" gorm:"index:idx_fireevent_target_id"`
	Weapon      string    `json:"weapon" gorm:"size:64"`
	WeaponKind  string    `json:"weaponKind" gorm:"size:16"`
	Shots       int       `json:"shots"`
	Attacks     int       `json:"attacks"`
	Hits        int       `json:"hits"`
	Damage      float64   `json:"damage"`
	UnitsKilled int       `json:"unitsKilled"`
	Distance    int       `json:"distance"`
}

func (*FireEvent) TableName() string {
	return "fire_events"
}

// MissileEvent represents a resolved missile salvo and its trajectory
type MissileEvent struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time       `json:"time" gorm:"type:timestamptz;"`
	BattleID    uint            `json:"battleId" gorm:"index:idx_missileevent_battle_id"`
	Battle      Battle          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Round       int             `json:"round"`
	MissileID   int             `json:"missileId"`
	LauncherID  int             `json:"launcherId" gorm:"index:idx_missileevent_launcher_id"`
	TargetID    int             `json:"targetId" gorm:"index:idx_missileevent_target_id"`
	Weapon      string          `json:"weapon" gorm:"size:64"`
	Count       int             `json:"count"`
	Outcome     string          `json:"outcome" gorm:"size:16"` // impact, expired, outranged, lost, spent
	Damage      float64         `json:"damage"`
	UnitsKilled int             `json:"unitsKilled"`
	Path        geom.LineString `json:"-"`
}

func (*MissileEvent) TableName() string {
	return "missile_events"
}

// DestroyedEvent marks a stack destroyed
type DestroyedEvent struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;"`
	BattleID uint      `json:"battleId" gorm:"index:idx_destroyedevent_battle_id"`
	Battle   Battle    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Round    int       `json:"round"`
	StackID  int       `json:"stackId"`
	Kind     string    `json:"kind" gorm:"size:16"`
	Owner    string    `json:"owner" gorm:"size:64"`
	Units    int       `json:"units"`
}

func (*DestroyedEvent) TableName() string {
	return "destroyed_events"
}

// RetreatEvent marks a stack leaving the battle
type RetreatEvent struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time" gorm:"type:timestamptz;"`
	BattleID    uint      `json:"battleId" gorm:"index:idx_retreatevent_battle_id"`
	Battle      Battle    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:BattleID;"`
	Round       int       `json:"round"`
	StackID     int       `json:"stackId"`
	Owner       string    `json:"owner" gorm:"size:64"`
	Units       int       `json:"units"`
	Destination string    `json:"destination" gorm:"size:64"`
	Forced      bool      `json:"forced" gorm:"default:false"`
}

func (*RetreatEvent) TableName() string {
	return "retreat_events"
}
