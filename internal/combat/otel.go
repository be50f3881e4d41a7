package combat

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/spacecombat/internal/combat"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	rounds    metric.Int64Counter
	turns     metric.Int64Counter
	shots     metric.Int64Counter
	destroyed metric.Int64Counter
	missiles  metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := meter()
	in := &instruments{}

	var err error
	if in.rounds, err = m.Int64Counter("combat.rounds",
		metric.WithDescription("Rounds started")); err != nil {
		return nil, fmt.Errorf("creating rounds counter: %w", err)
	}
	if in.turns, err = m.Int64Counter("combat.turns",
		metric.WithDescription("Stack turns taken")); err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}
	if in.shots, err = m.Int64Counter("combat.shots",
		metric.WithDescription("Weapon shots fired")); err != nil {
		return nil, fmt.Errorf("creating shots counter: %w", err)
	}
	if in.destroyed, err = m.Int64Counter("combat.stacks.destroyed",
		metric.WithDescription("Stacks destroyed")); err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}
	if in.missiles, err = m.Int64Counter("combat.missiles.launched",
		metric.WithDescription("Missile salvos launched")); err != nil {
		return nil, fmt.Errorf("creating missiles counter: %w", err)
	}
	return in, nil
}

func (in *instruments) roundStarted() {
	in.rounds.Add(context.Background(), 1)
}

func (in *instruments) turnTaken() {
	in.turns.Add(context.Background(), 1)
}

func (in *instruments) shotsFired(weapon string, shots int) {
	in.shots.Add(context.Background(), int64(shots),
		metric.WithAttributes(attribute.String("weapon", weapon)))
}

func (in *instruments) stackDestroyed(kind Kind) {
	in.destroyed.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind.String())))
}

func (in *instruments) missileLaunched() {
	in.missiles.Add(context.Background(), 1)
}
