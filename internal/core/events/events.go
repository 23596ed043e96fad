// Package events declares the concrete event variants exchanged over the
// dispatcher between the wave engine and the systems around it.
package events

import (
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/models"
)

var (
	_ bus.Event = LevelLoaded{}
	_ bus.Event = LevelWon{}
	_ bus.Event = LevelFinished{}
	_ bus.Event = BreakQueued{}
	_ bus.Event = BreakStarted{}
	_ bus.Event = BreakStopEarly{}
	_ bus.Event = BreakStopped{}
	_ bus.Event = BreakTimeUpdated{}
	_ bus.Event = WaveUpdated{}
	_ bus.Event = EnemySpawned{}
	_ bus.Event = PlayerHUDLoaded{}
	_ bus.Event = PlayerDamaged{}
	_ bus.Event = PlayerDefeated{}
	_ bus.Event = GoldGained{}
	_ bus.Event = GoldWithdrawn{}
	_ bus.Event = GoldUpdated{}
	_ bus.Event = HealthUpdated{}
)

// Level management

// LevelLoaded is published by the host once a level is ready.
type LevelLoaded struct {
	Level string `json:"level"`
}

// LevelWon is published by the wave engine after the last wave is cleared.
type LevelWon struct{}

// LevelFinished marks the end of the run, won or lost.
type LevelFinished struct {
	Won bool `json:"won"`
}

// Level states

// BreakQueued asks the intermission system to start a break.
type BreakQueued struct{}

// BreakStarted notifies that the break countdown is running.
type BreakStarted struct{}

// BreakStopEarly asks to skip the rest of the current break.
type BreakStopEarly struct{}

// BreakStopped notifies that the break is over; spawning resumes.
type BreakStopped struct{}

// BreakTimeUpdated carries the whole seconds left in the break.
type BreakTimeUpdated struct {
	Seconds int `json:"seconds"`
}

// WaveUpdated is the HUD wave counter, 1-based.
type WaveUpdated struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// EnemySpawned is published for every entity the wave engine creates.
type EnemySpawned struct {
	ID    models.EntityID `json:"id"`
	Kind  string          `json:"kind"`
	Point string          `json:"point"`
	Wave  int             `json:"wave"`
}

// Player

// PlayerHUDLoaded signals that a HUD attached late and needs a refresh.
type PlayerHUDLoaded struct{}

// PlayerDamaged subtracts Amount from the player's health.
type PlayerDamaged struct {
	Amount float64 `json:"amount"`
}

// PlayerDefeated is published once when the player's health reaches zero.
type PlayerDefeated struct{}

// GoldGained adds Amount to the player's gold.
type GoldGained struct {
	Amount int `json:"amount"`
}

// GoldWithdrawn removes Amount from the player's gold, never below zero.
type GoldWithdrawn struct {
	Amount int `json:"amount"`
}

// GoldUpdated carries the current gold balance.
type GoldUpdated struct {
	Amount int `json:"amount"`
}

// HealthUpdated carries the current health as a fraction of the maximum.
type HealthUpdated struct {
	Percent float64 `json:"percent"`
}

func (LevelLoaded) Name() string      { return "level.loaded" }
func (LevelWon) Name() string         { return "level.won" }
func (LevelFinished) Name() string    { return "level.finished" }
func (BreakQueued) Name() string      { return "break.queued" }
func (BreakStarted) Name() string     { return "break.started" }
func (BreakStopEarly) Name() string   { return "break.stop_early" }
func (BreakStopped) Name() string     { return "break.stopped" }
func (BreakTimeUpdated) Name() string { return "break.time_updated" }
func (WaveUpdated) Name() string      { return "wave.updated" }
func (EnemySpawned) Name() string     { return "enemy.spawned" }
func (PlayerHUDLoaded) Name() string  { return "player.hud_loaded" }
func (PlayerDamaged) Name() string    { return "player.damaged" }
func (PlayerDefeated) Name() string   { return "player.defeated" }
func (GoldGained) Name() string       { return "gold.gained" }
func (GoldWithdrawn) Name() string    { return "gold.withdrawn" }
func (GoldUpdated) Name() string      { return "gold.updated" }
func (HealthUpdated) Name() string    { return "health.updated" }
