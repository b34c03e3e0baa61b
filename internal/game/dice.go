package game

import "time"

// Roller produces dice values in 1..6. The engine takes dice values as
// inputs; the loop that owns the turn (host or offline session) owns the
// randomness.
type Roller interface {
	Roll() int
}

// Dice is the xorshift64 Roller used in production.
type Dice struct {
	state uint64
}

// NewDice seeds a roller. A zero seed is replaced, xorshift cannot start
// at 0.
func NewDice(seed uint64) *Dice {
	if seed == 0 {
		seed = 1
	}
	return &Dice{state: seed}
}

// NewTimeDice seeds a roller from the wall clock.
func NewTimeDice() *Dice {
	return NewDice(uint64(time.Now().UnixNano()))
}

func (d *Dice) next() uint64 {
	x := d.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	d.state = x
	return x
}

// Roll returns a value in 1..6.
func (d *Dice) Roll() int {
	return int(d.next()%6) + 1
}
