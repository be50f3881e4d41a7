package combat

// deployment rows, centre first
var deployRows = [GridHeight]int{3, 4, 2, 5, 1, 6, 0, 7}

// SetupBattle resets the manager and prepares b for its first round. A battle
// without hostile combatants is finished immediately with a neutral victor.
func (m *Manager) SetupBattle(b Battle) {
	m.state = stateSetup
	m.name = b.Name
	m.system = b.System
	m.attacker = b.Attacker
	m.defender = b.Defender
	m.round = 0
	m.stalemate = false
	m.interdiction = false
	m.stacks = nil
	m.missiles = nil
	m.turnList = nil
	m.turnIdx = 0
	m.current = nil
	m.colony = nil
	m.conflict = make(map[ownerKey]bool)
	m.scanned = make(map[ownerKey]map[*Stack]bool)
	if m.results == nil {
		m.results = NewTally(b.Attacker, b.Defender)
	}

	m.field.Generate(b.System.Type, b.Colony != nil, m.cfg.ObstacleDensity)

	for _, f := range b.Fleets {
		for _, s := range f.Stacks {
			if s == nil || s.Destroyed() {
				continue
			}
			if s.Captain == nil {
				s.Captain = f.Captain
			}
			s.Owner = f.Owner
			s.home = f.Home
			m.addStack(s)
		}
	}
	if b.Colony != nil {
		b.Colony.Kind = KindColony
		if b.Colony.Colony == nil {
			b.Colony.Colony = &ColonyInfo{}
		}
		m.colony = b.Colony
		m.addStack(b.Colony)
	}
	for _, s := range b.Monsters {
		if s == nil || s.Destroyed() {
			continue
		}
		s.Kind = KindMonster
		if s.Owner.Kind != OwnerMonster {
			s.Owner = Monsters()
		}
		if s.Captain == nil {
			s.Captain = b.MonsterCaptain
		}
		m.addStack(s)
	}

	m.log.Info("battle setup",
		"battle", m.name, "system", m.system.Name, "type", m.system.Type.String(),
		"attacker", m.attacker.String(), "defender", m.defender.String(),
		"stacks", len(m.stacks), "obstacles", m.field.ObstructionCount())

	m.PlaceCombatStacks()
	m.scan()
	if m.observer != nil {
		m.observer.BattleStarted(m)
	}
	m.autoRetreat()
	m.dropUnarmedEmpires()

	if m.CombatIsFinished() {
		return
	}
	m.state = stateInProgress
	m.newRound()
}

func (m *Manager) addStack(s *Stack) {
	m.nextID++
	s.ID = m.nextID
	s.mgr = m
	s.removed = false
	s.destroyed = false
	s.Retreating = false
	s.StartingNum = s.Num
	if s.Hits <= 0 || s.Hits > s.MaxHits {
		s.Hits = s.MaxHits
	}
	if s.Shield == 0 {
		s.Shield = s.MaxShield
	}
	s.Move = s.MaxMove
	m.stacks = append(m.stacks, s)
	if s.Owner.Kind == OwnerEmpire {
		m.conflict[s.Owner.key()] = true
	}
}

// PlaceCombatStacks puts the attacker's stacks on the left edge and everyone
// else mirrored on the right edge, then decides whether the colony's
// interdiction field is in effect.
func (m *Manager) PlaceCombatStacks() {
	occupied := make(map[Point]bool)
	if m.colony != nil {
		m.colony.X, m.colony.Y = GridWidth-1, GridHeight/2-1
		occupied[m.colony.Position()] = true
	}

	var left, right int
	for _, s := range m.stacks {
		if s == m.colony {
			continue
		}
		var p Point
		var ok bool
		if s.Owner.Same(m.attacker) {
			p, ok = m.deploySlot(&left, false, occupied)
		} else {
			p, ok = m.deploySlot(&right, true, occupied)
		}
		if !ok {
			m.log.Warn("no free cell for stack", "stack", s.Name)
			continue
		}
		s.X, s.Y = p.X, p.Y
		occupied[p] = true
	}

	m.interdiction = false
	if m.colony != nil && m.colony.Colony != nil && m.colony.Colony.Interdiction {
		for _, s := range m.stacks {
			if s.CanTeleport && m.hostile(s.Owner, m.colony.Owner) {
				m.interdiction = true
				break
			}
		}
	}
}

// deploySlot returns the next free cell on one side, filling columns from
// the edge inwards.
func (m *Manager) deploySlot(next *int, mirrored bool, occupied map[Point]bool) (Point, bool) {
	for ; *next < GridHeight*GridWidth/2; *next++ {
		col := *next / GridHeight
		x := col
		if mirrored {
			x = GridWidth - 1 - col
		}
		p := Point{X: x, Y: deployRows[*next%GridHeight]}
		if occupied[p] || !m.field.IsValid(p.X, p.Y) {
			continue
		}
		*next++
		return p, true
	}
	return Point{}, false
}

// scan lets every owner with a scanner-equipped stack learn all hostile stacks.
func (m *Manager) scan() {
	for _, s := range m.stacks {
		if !s.Scanner {
			continue
		}
		k := s.Owner.key()
		if m.scanned[k] == nil {
			m.scanned[k] = make(map[*Stack]bool)
		}
		for _, t := range m.stacks {
			if m.hostile(s.Owner, t.Owner) {
				m.scanned[k][t] = true
			}
		}
	}
}

// autoRetreat withdraws stacks whose captain does not want to fight, repeating
// until no further stack leaves.
func (m *Manager) autoRetreat() {
	for changed := true; changed; {
		changed = false
		for _, s := range m.stacks {
			if s.removed || s.Captain == nil || !s.CanRetreat() {
				continue
			}
			if !s.Captain.WantToRetreat(m, s) {
				continue
			}
			dest, ok := s.Captain.RetreatDestination(s, s.home)
			if !ok {
				continue
			}
			m.RetreatStack(s, dest)
			changed = true
		}
	}
}

// dropUnarmedEmpires removes empires with no armed stack left from the conflict set.
func (m *Manager) dropUnarmedEmpires() {
	armed := make(map[ownerKey]bool)
	for _, s := range m.stacks {
		if !s.removed && s.Armed() {
			armed[s.Owner.key()] = true
		}
	}
	for k := range m.conflict {
		if !armed[k] {
			delete(m.conflict, k)
			m.log.Debug("empire dropped from conflict", "empire", k.id)
		}
	}
}
