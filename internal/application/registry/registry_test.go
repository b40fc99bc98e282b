package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

var now = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func upcoming(id string, kickoff time.Time) domain.Match {
	return domain.Match{ID: id, Slug: id, Kickoff: kickoff, Status: domain.StatusUpcoming}
}

func TestRegister_NewMatch(t *testing.T) {
	r := New()
	r.Register(upcoming("m1", now.Add(time.Hour)))

	m, ok := r.Get("m1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusUpcoming, m.Status)
	assert.True(t, r.Dirty())
}

func TestRegister_ExistingRefreshesMetadataOnly(t *testing.T) {
	r := New()
	r.Register(upcoming("m1", now.Add(time.Hour)))
	r.ApplyScoreUpdate("m1", domain.Score{Home: 1}, intp(20), "in_play")

	// discovery vuelve a ver el partido con nombres actualizados
	again := upcoming("m1", now.Add(time.Hour))
	again.HomeTeam = "Arsenal"
	r.Register(again)

	m, _ := r.Get("m1")
	assert.Equal(t, "Arsenal", m.HomeTeam)
	assert.Equal(t, domain.Score{Home: 1}, m.Score, "re-register must not touch the score")
	assert.Equal(t, domain.StatusLive, m.Status, "re-register must not touch lifecycle")
}

func TestApplyScoreUpdate_MinuteNeverDecreases(t *testing.T) {
	r := New()
	r.Register(upcoming("m1", now))
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(30), "in_play")
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(28), "in_play")

	m, _ := r.Get("m1")
	require.NotNil(t, m.Minute)
	assert.Equal(t, 30, *m.Minute)
}

func TestApplyScoreUpdate_StoresDecreasedScore(t *testing.T) {
	// El registry almacena lo que llega; la bajada la clasifica el detector.
	r := New()
	r.Register(upcoming("m1", now))
	r.ApplyScoreUpdate("m1", domain.Score{Home: 1}, intp(10), "in_play")
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(12), "in_play")

	m, _ := r.Get("m1")
	assert.Equal(t, domain.Score{}, m.Score)
}

func TestApplyScoreUpdate_StatusNeverRegresses(t *testing.T) {
	r := New()
	r.Register(upcoming("m1", now))
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(90), "finished")
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(90), "in_play")

	m, _ := r.Get("m1")
	assert.Equal(t, domain.StatusFinished, m.Status)
}

func TestApplyScoreUpdate_UnknownMatch(t *testing.T) {
	r := New()
	_, ok := r.ApplyScoreUpdate("ghost", domain.Score{}, nil, "in_play")
	assert.False(t, ok)
}

func TestRecomputeStatuses_TimeDrivenTransitions(t *testing.T) {
	r := New()
	r.Register(upcoming("far", now.Add(3*time.Hour)))
	r.Register(upcoming("soon", now.Add(5*time.Minute)))
	r.Register(upcoming("started", now.Add(-2*time.Minute)))

	finished := r.RecomputeStatuses(now)
	assert.Empty(t, finished)

	far, _ := r.Get("far")
	assert.Equal(t, domain.StatusUpcoming, far.Status)
	soon, _ := r.Get("soon")
	assert.Equal(t, domain.StatusSoon, soon.Status)
	started, _ := r.Get("started")
	assert.Equal(t, domain.StatusLive, started.Status)
}

func TestRecomputeStatuses_ForceFinishPastCeiling(t *testing.T) {
	r := New()
	m := upcoming("m1", now.Add(-121*time.Minute))
	m.Status = domain.StatusLive
	r.Register(m)

	finished := r.RecomputeStatuses(now)
	require.Len(t, finished, 1)
	assert.Equal(t, "m1", finished[0].ID)

	got, _ := r.Get("m1")
	assert.Equal(t, domain.StatusFinished, got.Status)
	assert.False(t, got.FinishedAt.IsZero())

	// idempotente: la segunda pasada no lo reporta otra vez
	assert.Empty(t, r.RecomputeStatuses(now))
}

func TestRecomputeStatuses_ConfirmedMinuteHoldsLive(t *testing.T) {
	// El proveedor reporta minuto 100 (prórroga): no se fuerza el final.
	r := New()
	m := upcoming("m1", now.Add(-130*time.Minute))
	m.Status = domain.StatusLive
	r.Register(m)
	r.ApplyScoreUpdate("m1", domain.Score{}, intp(100), "extra_time")

	assert.Empty(t, r.RecomputeStatuses(now))
	got, _ := r.Get("m1")
	assert.Equal(t, domain.StatusLive, got.Status)
}

func TestRecomputeStatuses_ForceFinishWhenFeedSilent(t *testing.T) {
	// El feed reportó minuto 60 y después enmudeció: el minuto congelado no
	// puede mantener el partido live para siempre.
	r := New()
	m := upcoming("m1", time.Now().UTC().Add(-40*time.Minute))
	m.Status = domain.StatusLive
	r.Register(m)
	r.ApplyScoreUpdate("m1", domain.Score{Home: 1}, intp(60), "in_play")

	// tres horas después sin una sola actualización
	finished := r.RecomputeStatuses(time.Now().UTC().Add(3 * time.Hour))
	require.Len(t, finished, 1)
	assert.Equal(t, "m1", finished[0].ID)
}

func TestPruneFinished_RespectsCooldown(t *testing.T) {
	r := New()
	m := upcoming("m1", now.Add(-3*time.Hour))
	m.Status = domain.StatusLive
	r.Register(m)
	r.ApplyScoreUpdate("m1", domain.Score{Home: 2, Away: 1}, intp(90), "finished")

	got, _ := r.Get("m1")
	require.Equal(t, domain.StatusFinished, got.Status)

	// dentro del cooldown: se conserva para correcciones tardías
	removed := r.PruneFinished(got.FinishedAt.Add(2*time.Minute), 5*time.Minute)
	assert.Empty(t, removed)
	_, ok := r.Get("m1")
	assert.True(t, ok)

	// pasado el cooldown: fuera
	removed = r.PruneFinished(got.FinishedAt.Add(6*time.Minute), 5*time.Minute)
	require.Len(t, removed, 1)
	_, ok = r.Get("m1")
	assert.False(t, ok)
}

func TestBaseline_MarkAndQuery(t *testing.T) {
	r := New()
	r.Register(upcoming("m1", now))

	assert.False(t, r.Baselined("m1"))
	r.MarkBaselined("m1")
	assert.True(t, r.Baselined("m1"))
	assert.False(t, r.Baselined("ghost"))
}

func TestRestore_ClearsBaselines(t *testing.T) {
	// Tras un reinicio el marcador persistido puede estar viejo: el primer
	// poll debe tratarse como baseline, nunca como gol.
	r := New()
	live := upcoming("m1", now.Add(-20*time.Minute))
	live.Status = domain.StatusLive
	live.Score = domain.Score{Home: 1}
	r.Restore([]domain.Match{live})

	m, ok := r.Get("m1")
	require.True(t, ok)
	assert.Equal(t, domain.Score{Home: 1}, m.Score)
	assert.False(t, r.Baselined("m1"))
}

func TestDirty_Lifecycle(t *testing.T) {
	r := New()
	assert.False(t, r.Dirty())
	r.Register(upcoming("m1", now))
	assert.True(t, r.Dirty())
	r.MarkClean()
	assert.False(t, r.Dirty())
	r.ApplyScoreUpdate("m1", domain.Score{Home: 1}, intp(5), "in_play")
	assert.True(t, r.Dirty())
}

func TestListByStatus_PriorityOrder(t *testing.T) {
	r := New()

	early := upcoming("early", now.Add(-5*time.Minute))
	early.Status = domain.StatusLive
	r.Register(early)
	r.ApplyScoreUpdate("early", domain.Score{}, intp(5), "in_play")

	critical := upcoming("critical", now.Add(-88*time.Minute))
	critical.Status = domain.StatusLive
	r.Register(critical)
	r.ApplyScoreUpdate("critical", domain.Score{}, intp(88), "in_play")

	live := r.ListByStatus(domain.StatusLive)
	require.Len(t, live, 2)
	assert.Equal(t, "critical", live[0].ID, "ultra-critical polls first")
	assert.Equal(t, "early", live[1].ID)
}
