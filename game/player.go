package game

import "fmt"

// Player is the content of a board cell and the identity of a mover.
// The numeric values are the codes used by the persisted board format.
type Player uint8

const (
	Empty Player = iota
	Machine
	Opponent
)

// Opponent returns the player that moves after p. A board nobody has moved on
// yet is answered by the machine.
func (p Player) Opponent() Player {
	if p == Machine {
		return Opponent
	}
	return Machine
}

func (p Player) Valid() bool {
	return p <= Opponent
}

func (p Player) String() string {
	switch p {
	case Empty:
		return "empty"
	case Machine:
		return "machine"
	case Opponent:
		return "opponent"
	default:
		return fmt.Sprintf("player(%d)", uint8(p))
	}
}
