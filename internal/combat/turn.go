package combat

import (
	"cmp"
	"slices"
)

// initiative returns the sort key of s for the round being started. Cloak and
// teleport bonuses are sampled here only, so a stack that decloaks mid-round
// keeps its place until the next round.
func (m *Manager) initiative(s *Stack) int {
	v := s.Initiative
	if s.Cloaked {
		v += CloakInitiativeBonus
	}
	if s.CanTeleport && !m.interdicts(s) {
		v += TeleportInitiativeBonus
	}
	return v
}

func (m *Manager) buildTurnList() []*Stack {
	list := make([]*Stack, 0, len(m.stacks))
	keys := make(map[*Stack]int, len(m.stacks))
	for _, s := range m.stacks {
		if s.removed {
			continue
		}
		if s.Kind != KindColony && s.Destroyed() {
			continue
		}
		if s.Kind == KindColony || s.MaxMove > 0 || s.Armed() {
			list = append(list, s)
			keys[s] = m.initiative(s)
		}
	}
	slices.SortStableFunc(list, func(a, b *Stack) int {
		return cmp.Compare(keys[b], keys[a])
	})
	return list
}

// newRound starts the next round, or ends the battle as a stalemate once the
// round cap is reached.
func (m *Manager) newRound() {
	if m.round >= m.cfg.MaxRounds {
		m.endStalemate()
		return
	}
	m.round++
	if m.round > 1 && m.field.Erode() {
		m.log.Debug("obstacle eroded", "round", m.round)
	}
	m.turnList = m.buildTurnList()
	m.turnIdx = -1
	m.metrics.roundStarted()
	m.log.Debug("round started", "round", m.round, "stacks", len(m.turnList))
	if m.observer != nil {
		m.observer.RoundStarted(m, m.round)
	}
	m.beginNext()
}

// beginNext hands the turn to the next stack able to act in this round.
func (m *Manager) beginNext() {
	for m.turnIdx+1 < len(m.turnList) {
		m.turnIdx++
		s := m.turnList[m.turnIdx]
		if s.removed || (s.Kind != KindColony && s.Destroyed()) {
			continue
		}
		if s.Kind == KindColony && !s.Armed() {
			s.BeginTurn()
			s.EndTurn()
			continue
		}
		m.current = s
		m.turnSeq++
		m.metrics.turnTaken()
		s.BeginTurn()
		return
	}
	m.current = nil
	if m.CombatIsFinished() {
		return
	}
	m.newRound()
}

// AdvanceTurn ends the turn of s and passes control to the next stack.
func (m *Manager) AdvanceTurn(s *Stack) {
	if m.state != stateInProgress {
		return
	}
	if s != nil {
		s.EndTurn()
	}
	m.current = nil
	if m.CombatIsFinished() {
		return
	}
	m.beginNext()
}

// Step lets the current stack's captain act, then moves on to the next stack.
// It reports whether the battle is still running.
func (m *Manager) Step() bool {
	if m.CombatIsFinished() {
		return false
	}
	s := m.current
	if s == nil {
		m.beginNext()
		return !m.CombatIsFinished()
	}

	seq := m.turnSeq
	if !s.IsTurnComplete() && s.Captain != nil {
		s.Captain.PerformTurn(m, s)
	}
	// destruction or retreat of the actor has already advanced the turn
	if m.turnSeq == seq && m.current == s {
		m.AdvanceTurn(s)
	}
	m.flushRemovals()
	m.render()
	return !m.CombatIsFinished()
}

// CombatIsFinished reports whether the battle is over. Calling it repeatedly
// without mutating the battle returns the same answer.
func (m *Manager) CombatIsFinished() bool {
	if m.state == stateFinished {
		return true
	}
	if m.round > m.cfg.MaxRounds {
		m.endStalemate()
		return true
	}
	if !m.hostilePairExists() {
		m.finish()
		return true
	}
	return false
}

func (m *Manager) combatable(s *Stack) bool {
	if s.removed || s.Destroyed() {
		return false
	}
	if s.Owner.Kind == OwnerEmpire && !m.conflict[s.Owner.key()] {
		return false
	}
	switch s.Kind {
	case KindColony:
		return s.Armed()
	case KindMonster:
		return true
	case KindShip:
		return !s.InStasis && s.Armed()
	}
	return false
}

func (m *Manager) hostilePairExists() bool {
	for i, a := range m.stacks {
		if !m.combatable(a) {
			continue
		}
		for _, b := range m.stacks[i+1:] {
			if m.combatable(b) && m.hostile(a.Owner, b.Owner) {
				return true
			}
		}
	}
	return false
}

// endStalemate is the round cap safety valve: the attacker is forced out and
// the defender holds the field.
func (m *Manager) endStalemate() {
	m.stalemate = true
	m.log.Info("round limit reached", "battle", m.name, "rounds", m.round)
	for _, s := range m.stacks {
		if s.removed || !s.Owner.Same(m.attacker) || s.Kind == KindColony {
			continue
		}
		dest := s.home
		if s.Captain != nil {
			if d, ok := s.Captain.RetreatDestination(s, s.home); ok {
				dest = d
			}
		}
		m.retreat(s, dest, true)
	}
	m.finish()
}

func (m *Manager) finish() {
	if m.state == stateFinished {
		return
	}
	setup := m.state == stateSetup
	m.state = stateFinished
	m.current = nil

	victor := Neutral
	if !setup {
		victor = m.decideVictor()
	}
	if m.results != nil {
		m.results.SetVictor(victor)
	}
	m.cancelAllMissiles()

	m.log.Info("battle finished",
		"battle", m.name, "rounds", m.round, "victor", victor.String(), "stalemate", m.stalemate)
	if m.observer != nil {
		m.observer.BattleEnded(m)
	}
}

func (m *Manager) decideVictor() Owner {
	if m.stalemate {
		for _, s := range m.stacks {
			if !s.removed && s.Owner.Same(m.defender) {
				return m.defender
			}
		}
		return Neutral
	}

	var victor *Owner
	for _, s := range m.stacks {
		if !m.combatable(s) {
			continue
		}
		if victor == nil {
			o := s.Owner
			victor = &o
			continue
		}
		if !victor.Same(s.Owner) {
			return Neutral
		}
	}
	if victor == nil {
		return Neutral
	}
	return *victor
}

func (m *Manager) cancelAllMissiles() {
	for _, ms := range m.missiles {
		if !ms.done {
			ms.resolve(MissileLostLock)
		}
	}
}
