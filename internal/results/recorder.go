// Package results collects the outcome of a battle and publishes it as
// pkg/core records to the recording pipeline.
package results

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/spacecombat/internal/combat"
	"github.com/OCAP2/spacecombat/internal/dispatcher"
	"github.com/OCAP2/spacecombat/internal/geo"
	"github.com/OCAP2/spacecombat/pkg/core"

	"github.com/google/uuid"
)

// Publisher accepts recorder events; *dispatcher.Dispatcher satisfies it.
type Publisher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used for publish failures. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.log = l
	}
}

// WithTag labels the recorded battle.
func WithTag(tag string) Option {
	return func(r *Recorder) {
		r.tag = tag
	}
}

// WithVersion stamps the recorded battle with the build version.
func WithVersion(v string) Option {
	return func(r *Recorder) {
		r.version = v
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder is the results sink of a battle. It keeps the authoritative tally
// and, when a Publisher is set, turns observer callbacks into dispatcher
// events. Publish failures are logged and never reach the engine.
type Recorder struct {
	*combat.Tally

	pub     Publisher
	log     *slog.Logger
	tag     string
	version string
	now     func() time.Time

	battle  core.Battle
	owners  []combat.Owner
	errs    []error
	started bool
}

var (
	_ combat.Results  = (*Recorder)(nil)
	_ combat.Observer = (*Recorder)(nil)
)

// New creates a recorder for a battle between attacker and defender. pub may
// be nil, in which case only the tally is kept.
func New(attacker, defender combat.Owner, pub Publisher, opts ...Option) *Recorder {
	r := &Recorder{
		Tally: combat.NewTally(attacker, defender),
		pub:   pub,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Battle returns the battle record as last published.
func (r *Recorder) Battle() core.Battle {
	return r.battle
}

// Errors returns every publish failure seen so far.
func (r *Recorder) Errors() []error {
	return r.errs
}

// Summary aggregates the tally per owner: attacker, defender, then any other
// owner that took part in order of appearance.
func (r *Recorder) Summary() []core.SideSummary {
	out := make([]core.SideSummary, 0, len(r.owners)+2)
	for _, o := range r.summaryOwners() {
		out = append(out, core.SideSummary{
			Owner:           o.String(),
			StacksDestroyed: r.StacksDestroyed(o),
			ShipsDestroyed:  r.ShipsDestroyed(o),
			ShipsRetreated:  r.ShipsRetreated(o),
			DamageSustained: r.DamageSustained(o),
		})
	}
	return out
}

func (r *Recorder) summaryOwners() []combat.Owner {
	owners := []combat.Owner{r.Attacker(), r.Defender()}
	for _, o := range r.owners {
		if !containsOwner(owners, o) {
			owners = append(owners, o)
		}
	}
	return owners
}

func containsOwner(owners []combat.Owner, o combat.Owner) bool {
	for _, x := range owners {
		if x.Same(o) {
			return true
		}
	}
	return false
}

func (r *Recorder) BattleStarted(m *combat.Manager) {
	r.started = true
	r.battle = core.Battle{
		UUID:             uuid.NewString(),
		Name:             m.Name(),
		SystemName:       m.System().Name,
		SystemType:       m.System().Type.String(),
		Attacker:         r.Attacker().String(),
		Defender:         r.Defender().String(),
		Seed:             m.Config().Seed,
		StartTime:        r.now(),
		Tag:              r.tag,
		ExtensionVersion: r.version,
	}

	b := r.battle
	if id, ok := r.publish(dispatcher.CmdBattleStart, &b); ok {
		if v, isID := id.(uint); isID {
			r.battle.ID = v
		}
	}

	for _, s := range m.AllStacks() {
		if !containsOwner(r.owners, s.Owner) {
			r.owners = append(r.owners, s.Owner)
		}
		r.publish(dispatcher.CmdCombatantAdd, combatant(s))
	}
}

func (r *Recorder) RoundStarted(m *combat.Manager, round int) {
	now := r.now()
	for _, s := range m.Stacks() {
		r.publish(dispatcher.CmdStackState, &core.StackState{
			StackID:  s.ID,
			Time:     now,
			Round:    round,
			Position: core.Position{X: s.X, Y: s.Y},
			Units:    s.Num,
			Hits:     s.Hits,
			Cloaked:  s.Cloaked,
			InStasis: s.InStasis,
		})
	}
}

func (r *Recorder) WeaponFired(m *combat.Manager, fr combat.FireReport) {
	ev := &core.FireEvent{
		Time:        r.now(),
		Round:       m.Round(),
		ShooterID:   fr.Shooter.ID,
		TargetID:    fr.Target.ID,
		Shots:       fr.Shots,
		Attacks:     fr.Attacks,
		Hits:        fr.Hits,
		Damage:      fr.Damage,
		UnitsKilled: fr.UnitsKilled,
		Distance:    geo.Chebyshev(fr.Shooter.X, fr.Shooter.Y, fr.Target.X, fr.Target.Y),
	}
	if fr.Weapon != nil {
		ev.Weapon = fr.Weapon.Name
		ev.WeaponKind = fr.Weapon.Kind.String()
	}
	r.publish(dispatcher.CmdFireEvent, ev)
}

func (r *Recorder) MissileResolved(m *combat.Manager, ms *combat.Missile) {
	ev := &core.MissileEvent{
		Time:        r.now(),
		Round:       m.Round(),
		MissileID:   ms.ID,
		Count:       ms.Num,
		Outcome:     string(ms.Outcome),
		Damage:      ms.DamageDealt,
		UnitsKilled: ms.UnitsKilled,
		Path:        path(ms.Path),
	}
	if ms.Launcher != nil {
		ev.LauncherID = ms.Launcher.ID
	}
	if ms.Target != nil {
		ev.TargetID = ms.Target.ID
	}
	if ms.Weapon != nil {
		ev.Weapon = ms.Weapon.Name
	}
	r.publish(dispatcher.CmdMissileEvent, ev)
}

func (r *Recorder) StackDestroyed(m *combat.Manager, s *combat.Stack) {
	r.publish(dispatcher.CmdDestroyedEvent, &core.DestroyedEvent{
		Time:    r.now(),
		Round:   m.Round(),
		StackID: s.ID,
		Kind:    s.Kind.String(),
		Owner:   s.Owner.String(),
		Units:   s.StartingNum,
	})
}

func (r *Recorder) StackRetreated(m *combat.Manager, s *combat.Stack, dest string, forced bool) {
	r.publish(dispatcher.CmdRetreatEvent, &core.RetreatEvent{
		Time:        r.now(),
		Round:       m.Round(),
		StackID:     s.ID,
		Owner:       s.Owner.String(),
		Units:       s.Num,
		Destination: dest,
		Forced:      forced,
	})
}

func (r *Recorder) BattleEnded(m *combat.Manager) {
	r.battle.EndTime = r.now()
	r.battle.Rounds = m.Round()
	r.battle.Stalemate = m.Stalemate()
	if v, ok := r.Victor(); ok && !v.IsNeutral() {
		r.battle.Victor = v.String()
	}
	r.battle.Summary = r.Summary()

	// a battle finished during setup never announced itself
	if !r.started {
		return
	}
	b := r.battle
	r.publish(dispatcher.CmdBattleEnd, &b)
}

func (r *Recorder) publish(command string, payload any) (any, bool) {
	if r.pub == nil {
		return nil, false
	}
	result, err := r.pub.Dispatch(dispatcher.Event{
		Command:   command,
		Payload:   payload,
		Timestamp: r.now(),
	})
	if err != nil {
		err = fmt.Errorf("%s: %w", command, err)
		r.errs = append(r.errs, err)
		r.log.Warn("failed to publish battle record", "command", command, "error", err)
		return nil, false
	}
	return result, true
}

func combatant(s *combat.Stack) *core.Combatant {
	return &core.Combatant{
		StackID:    s.ID,
		Name:       s.Name,
		Kind:       s.Kind.String(),
		Owner:      s.Owner.String(),
		Home:       s.Home(),
		Units:      s.Num,
		MaxHits:    s.MaxHits,
		Shield:     s.MaxShield,
		Attack:     s.Attack,
		Defense:    s.BeamDefense,
		Initiative: s.Initiative,
		Start:      core.Position{X: s.X, Y: s.Y},
	}
}

func path(points []combat.PathPoint) core.Path {
	if len(points) == 0 {
		return nil
	}
	out := make(core.Path, len(points))
	for i, p := range points {
		out[i] = core.PathPoint{X: p.X, Y: p.Y}
	}
	return out
}
