package waves

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelValidate(t *testing.T) {
	valid := func() *Level {
		return &Level{
			Enemies:        map[string]EnemyKind{"grunt": {Health: 1}},
			Waves:          []Wave{{Groups: []EnemyGroup{{Enemy: "grunt", Count: 2}}}},
			SpawnIntervals: []time.Duration{time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Level)
		want   error
	}{
		{name: "valid", mutate: func(*Level) {}},
		{name: "no waves", mutate: func(l *Level) { l.Waves = nil; l.SpawnIntervals = nil }, want: ErrNoWaves},
		{name: "mismatch", mutate: func(l *Level) { l.SpawnIntervals = nil }, want: ErrIntervalMismatch},
		{name: "negative interval", mutate: func(l *Level) { l.SpawnIntervals[0] = -time.Second }, want: ErrNegativeInterval},
		{name: "empty wave", mutate: func(l *Level) { l.Waves[0].Groups = nil }, want: ErrEmptyWave},
		{name: "zero count", mutate: func(l *Level) { l.Waves[0].Groups[0].Count = 0 }, want: ErrInvalidGroupCount},
		{name: "unknown enemy", mutate: func(l *Level) { l.Waves[0].Groups[0].Enemy = "dragon" }, want: ErrUnknownEnemy},
		{name: "no health", mutate: func(l *Level) { l.Enemies["grunt"] = EnemyKind{Speed: 1} }, want: ErrInvalidEnemyKind},
		{name: "negative speed", mutate: func(l *Level) { l.Enemies["grunt"] = EnemyKind{Health: 1, Speed: -1} }, want: ErrInvalidEnemyKind},
		{name: "negative goal damage", mutate: func(l *Level) { l.Enemies["grunt"] = EnemyKind{Health: 1, GoalDamage: -2} }, want: ErrInvalidEnemyKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.mutate(l)
			err := l.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidLevel)
		})
	}

	var missing *Level
	assert.ErrorIs(t, missing.Validate(), ErrNilLevel)
}

func TestLevelTotals(t *testing.T) {
	l := &Level{Waves: []Wave{
		{Groups: []EnemyGroup{{Count: 3}, {Count: 2}}},
		{Groups: []EnemyGroup{{Count: 4}}},
	}}
	assert.Equal(t, 5, l.Waves[0].Count())
	assert.Equal(t, 9, l.TotalEnemies())
}

func TestStateAndCursorStrings(t *testing.T) {
	assert.Equal(t, "on_break", StateOnBreak.String())
	assert.True(t, StateLevelWon.Terminal())
	assert.False(t, StateSpawning.Terminal())
	assert.Equal(t, "wave=1 group=2 count=0", Cursor{Wave: 1, Group: 2}.String())
}
