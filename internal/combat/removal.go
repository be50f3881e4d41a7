package combat

// DestroyStack records the loss of s and takes it out of the battle. Colonies
// stay on the field as targets. If s was acting, the turn passes on at once.
func (m *Manager) DestroyStack(s *Stack) {
	if s.destroyed {
		return
	}
	s.destroyed = true

	if s.Kind != KindColony {
		m.results.AddShipStackDestroyed(s)
	}
	s.BecomeDestroyed()
	m.metrics.stackDestroyed(s.Kind)
	m.log.Info("stack destroyed",
		"stack", s.Name, "kind", s.Kind.String(), "owner", s.Owner.String(), "round", m.round)
	if m.observer != nil {
		m.observer.StackDestroyed(m, s)
	}

	if s.Kind == KindColony {
		m.cancelMissiles(s)
	} else {
		m.RemoveFromCombat(s)
	}
	if s == m.current {
		m.AdvanceTurn(s)
	}
}

// RetreatStack withdraws s towards dest.
func (m *Manager) RetreatStack(s *Stack, dest string) {
	m.retreat(s, dest, false)
}

func (m *Manager) retreat(s *Stack, dest string, forced bool) {
	if s.removed {
		return
	}
	s.Retreating = true
	m.results.AddShipsRetreated(s, s.Num)
	m.log.Info("stack retreated",
		"stack", s.Name, "owner", s.Owner.String(), "units", s.Num, "destination", dest, "forced", forced)
	if m.observer != nil {
		m.observer.StackRetreated(m, s, dest, forced)
	}
	m.RemoveFromCombat(s)
	if s == m.current && m.state == stateInProgress {
		m.AdvanceTurn(s)
	}
}

// RemoveFromCombat takes s off the roster along with every missile it launched
// or is targeted by. The roster itself is compacted by flushRemovals so that
// callers iterating it are unaffected.
func (m *Manager) RemoveFromCombat(s *Stack) {
	if s.removed {
		return
	}
	s.removed = true
	s.Cloaked = false
	m.cancelMissiles(s)
}

// flushRemovals drops resolved missiles. Removed stacks stay in the roster
// flagged so that results can still be reported against them.
func (m *Manager) flushRemovals() {
	live := m.missiles[:0]
	for _, ms := range m.missiles {
		if !ms.done {
			live = append(live, ms)
		}
	}
	clear(m.missiles[len(live):])
	m.missiles = live
}
