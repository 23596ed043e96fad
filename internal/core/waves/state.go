package waves

import "fmt"

// State is the engine's progression state.
type State uint8

const (
	// StateIdle: initialized, waiting for the first break to end.
	StateIdle State = iota
	// StateSpawning: the spawn timer paces the current wave, or the wave is
	// fully spawned and its enemies are still alive.
	StateSpawning
	// StateOnBreak: a wave was cleared, waiting for the break to end.
	StateOnBreak
	// StateLevelWon is terminal.
	StateLevelWon
	// StatePlayerDefeated is terminal.
	StatePlayerDefeated
	// StateFailed: configuration error at initialization; never spawns.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateOnBreak:
		return "on_break"
	case StateLevelWon:
		return "level_won"
	case StatePlayerDefeated:
		return "player_defeated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Terminal reports whether no further spawning can happen from this state.
func (s State) Terminal() bool {
	return s == StateLevelWon || s == StatePlayerDefeated || s == StateFailed
}

// Cursor is the engine's position in the spawn sequence.
type Cursor struct {
	Wave  int `json:"wave"`
	Group int `json:"group"`
	Count int `json:"count"`
}

func (c Cursor) String() string {
	return fmt.Sprintf("wave=%d group=%d count=%d", c.Wave, c.Group, c.Count)
}
