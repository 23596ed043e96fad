package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/models"
)

func TestCollectorCountsDispatcherTraffic(t *testing.T) {
	d := bus.New()
	c := NewCollector()
	d.AddObserver(c)

	_, err := bus.Subscribe(d, func(events.BreakQueued) error { return errors.New("hud offline") })
	require.NoError(t, err)

	require.NoError(t, d.Publish(events.EnemySpawned{ID: 1, Kind: "grunt"}))
	require.NoError(t, d.Publish(events.EnemySpawned{ID: 2, Kind: "grunt"}))
	require.NoError(t, d.Publish(events.EnemySpawned{ID: 3}))
	require.NoError(t, d.Publish(events.WaveUpdated{Current: 2, Max: 5}))
	require.Error(t, d.Publish(events.BreakQueued{}))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.published.WithLabelValues("enemy.spawned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.published.WithLabelValues("break.queued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.spawned.WithLabelValues("grunt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.spawned.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.handlerErrors.WithLabelValues("break.queued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.wave))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.waves))
	assert.Equal(t, 3, testutil.CollectAndCount(c.deliverSeconds))
}

type entity struct{ id models.EntityID }

func (e entity) ID() models.EntityID                            { return e.id }
func (e entity) OnDestroyed(func(lifecycle.Destroyable)) func() { return func() {} }

func TestCollectorTracksActiveEnemies(t *testing.T) {
	c := NewCollector()
	r := lifecycle.NewRegistry(nil)
	require.NoError(t, c.TrackRegistry(r))
	assert.ErrorIs(t, c.TrackRegistry(r), ErrRegistryTracked)

	require.NoError(t, r.Register(entity{id: 1}))
	require.NoError(t, r.Register(entity{id: 2}))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "wavecore_enemies_active 2"), string(body))
}
