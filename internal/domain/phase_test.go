package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var clock = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func minuteAt(m int) *int { return &m }

func liveMatch(minute int) Match {
	return Match{
		ID:      "m1",
		Kickoff: clock.Add(-time.Duration(minute) * time.Minute),
		Minute:  minuteAt(minute),
		Status:  StatusLive,
	}
}

func TestClassify_DiscoveryFarFromKickoff(t *testing.T) {
	m := Match{Kickoff: clock.Add(5 * time.Hour), Status: StatusUpcoming}
	phase, interval := Classify(m, clock)
	assert.Equal(t, PhaseDiscovery, phase)
	assert.Equal(t, 60*time.Second, interval)
}

func TestClassify_PreMatchWindow(t *testing.T) {
	m := Match{Kickoff: clock.Add(7 * time.Minute), Status: StatusSoon}
	phase, interval := Classify(m, clock)
	assert.Equal(t, PhasePreMatch, phase)
	assert.Equal(t, 30*time.Second, interval)
}

func TestClassify_LiveTiers(t *testing.T) {
	cases := []struct {
		minute int
		phase  Phase
	}{
		{0, PhaseEarly},
		{14, PhaseEarly},
		{15, PhaseMid},
		{69, PhaseMid},
		{70, PhaseCritical},
		{84, PhaseCritical},
		{85, PhaseUltraCritical},
		{89, PhaseUltraCritical},
	}
	for _, c := range cases {
		phase, interval := Classify(liveMatch(c.minute), clock)
		assert.Equal(t, c.phase, phase, "minute %d", c.minute)
		assert.Equal(t, time.Second, interval, "minute %d", c.minute)
	}
}

func TestClassify_ConfirmedMinuteKeepsLivePast90(t *testing.T) {
	// El proveedor sigue reportando minuto (descuento largo): sigue live.
	phase, _ := Classify(liveMatch(94), clock)
	assert.Equal(t, PhaseUltraCritical, phase)
}

func TestClassify_PostMatchLimbo(t *testing.T) {
	// Pasado el 90 sin minuto confirmado: bajar cadencia a 10s.
	m := Match{
		ID:      "m1",
		Kickoff: clock.Add(-100 * time.Minute),
		Status:  StatusLive,
	}
	phase, interval := Classify(m, clock)
	assert.Equal(t, PhasePostMatch, phase)
	assert.Equal(t, 10*time.Second, interval)
}

func TestClassify_DoneCeiling(t *testing.T) {
	m := Match{
		ID:      "m1",
		Kickoff: clock.Add(-121 * time.Minute),
		Status:  StatusLive,
	}
	phase, interval := Classify(m, clock)
	assert.Equal(t, PhaseDone, phase)
	assert.Equal(t, time.Duration(0), interval)
}

func TestClassify_FinishedStatusWinsOverClock(t *testing.T) {
	m := liveMatch(70)
	m.Status = StatusFinished
	phase, interval := Classify(m, clock)
	assert.Equal(t, PhaseDone, phase)
	assert.Equal(t, time.Duration(0), interval)
}

func TestClassify_KickoffPassedWithoutLiveConfirmation(t *testing.T) {
	// El proveedor aún dice upcoming pero el kickoff ya pasó: tratar como live.
	m := Match{Kickoff: clock.Add(-3 * time.Minute), Status: StatusUpcoming}
	phase, _ := Classify(m, clock)
	assert.Equal(t, PhaseEarly, phase)
}

func TestPhase_Priority(t *testing.T) {
	assert.Equal(t, 3, PhaseUltraCritical.Priority())
	assert.Equal(t, 2, PhaseCritical.Priority())
	assert.Equal(t, 1, PhaseMid.Priority())
	assert.Equal(t, 1, PhaseEarly.Priority())
	assert.Equal(t, 0, PhaseDiscovery.Priority())
	assert.Equal(t, 0, PhasePostMatch.Priority())
}

func TestPhase_Live(t *testing.T) {
	assert.True(t, PhaseEarly.Live())
	assert.True(t, PhaseUltraCritical.Live())
	assert.False(t, PhasePreMatch.Live())
	assert.False(t, PhasePostMatch.Live())
	assert.False(t, PhaseDone.Live())
}
