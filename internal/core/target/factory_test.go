package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/models"
	"github.com/zeusync/wavecore/internal/core/waves"
)

func TestFactoryTracksLiveEnemies(t *testing.T) {
	d := bus.New()
	f := NewFactory(d, nil, nil)
	registry := lifecycle.NewRegistry(nil)

	for i := 0; i < 3; i++ {
		e, err := f.Spawn(grunt, waves.SpawnPoint{Name: "gate"})
		require.NoError(t, err)
		require.NoError(t, registry.Register(e))
	}
	live := f.Live()
	require.Len(t, live, 3)
	assert.Equal(t, []models.EntityID{1, 2, 3}, []models.EntityID{live[0].ID(), live[1].ID(), live[2].ID()})

	live[1].Hit(grunt.Health)
	assert.Len(t, f.Live(), 2)
	assert.Equal(t, 2, registry.ActiveCount())

	require.NoError(t, d.Publish(events.PlayerDefeated{}))
	assert.Empty(t, f.Live())
	assert.Equal(t, 0, registry.ActiveCount())
	assert.Equal(t, uint64(3), f.Issued())
}

func TestFactoryRejectsKindWithoutHealth(t *testing.T) {
	f := NewFactory(bus.New(), nil, nil)
	_, err := f.Spawn(waves.EnemyKind{Name: "ghost"}, waves.SpawnPoint{})
	assert.ErrorContains(t, err, "ghost")
	assert.ErrorIs(t, err, waves.ErrInvalidEnemyKind)
}
