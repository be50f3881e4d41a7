package dispatcher

// Commands published for one recorded battle, in the order they occur.
const (
	CmdBattleStart    = "battle:start"
	CmdCombatantAdd   = "combatant:add"
	CmdStackState     = "stack:state"
	CmdFireEvent      = "event:fire"
	CmdMissileEvent   = "event:missile"
	CmdDestroyedEvent = "event:destroyed"
	CmdRetreatEvent   = "event:retreat"
	CmdBattleEnd      = "battle:end"
)
