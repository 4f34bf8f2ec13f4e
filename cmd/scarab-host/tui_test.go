package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dragoncraft87/scarab-host/internal/coordinator"
	"github.com/dragoncraft87/scarab-host/internal/serialport"
	"github.com/dragoncraft87/scarab-host/internal/telemetry"
)

func TestStateLabel(t *testing.T) {
	cases := map[serialport.State]string{
		serialport.StateStreaming:   "streaming",
		serialport.StatePaused:      "paused",
		serialport.StateSyncing:     "syncing",
		serialport.StateHandshaking: "handshaking",
		serialport.StateSearching:   "connecting",
	}
	for state, want := range cases {
		assert.Equal(t, want, stateLabel(state), "stateLabel(%v)", state)
	}
}

func TestNewModel_StartsWithNoSessionAndIdleUpload(t *testing.T) {
	coord := coordinator.New(func(string) error { return nil })
	sampler := telemetry.NewSampler(nil, nil)

	m := newModel(coord, sampler, func() *serialport.Session { return nil }, nil)
	view := m.View()

	assert.Contains(t, view, "scarab-host")
	assert.Contains(t, view, "searching for device")
	assert.Contains(t, view, "idle")
}
