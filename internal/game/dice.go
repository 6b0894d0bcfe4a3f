// internal/game/dice.go
package game

import "math/rand"

// Roller produces die rolls for the decision step. The rolled value is
// captured in the DiceRolled event, so replay never re-invokes the roller;
// injecting it keeps the aggregate itself free of RNG state.
type Roller interface {
	// Roll returns a uniform value in [1,6].
	Roll() int
}

type dieRoller struct {
	rnd *rand.Rand
}

// NewRoller returns a six-sided die backed by an explicitly seeded source.
func NewRoller(seed int64) Roller {
	return &dieRoller{rnd: rand.New(rand.NewSource(seed))}
}

func (d *dieRoller) Roll() int {
	return d.rnd.Intn(6) + 1
}
