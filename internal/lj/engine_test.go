package lj

import (
	"errors"
	"math"
	"testing"

	"github.com/kvasudev/eqmd/internal/md"
)

func smallEngine() *Engine {
	return New(Config{Particles: 32, Seed: 42})
}

func TestNewDefaults(t *testing.T) {
	e := New(Config{})
	if e.n != 108 {
		t.Errorf("expected 108 particles, got %d", e.n)
	}

	state, err := e.ReadState()
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Volume <= 0 {
		t.Errorf("expected positive volume, got %g", state.Volume)
	}
	if !state.Finite() {
		t.Errorf("initial energies not finite: %+v", state)
	}
	// Velocities are drawn at 300 K; the instantaneous estimate fluctuates
	// but should land in the right neighborhood.
	if state.Temperature < 150 || state.Temperature > 450 {
		t.Errorf("initial temperature %g K far from 300 K", state.Temperature)
	}
}

func TestSetTemperatureValidation(t *testing.T) {
	e := smallEngine()
	for _, bad := range []float64{0, -300} {
		if err := e.SetTemperature(bad); err == nil {
			t.Errorf("expected error for temperature %g", bad)
		}
	}
	if err := e.SetTemperature(600); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAttachBarostatValidation(t *testing.T) {
	e := smallEngine()
	for _, bad := range []int{0, -50} {
		if err := e.AttachBarostat(1000, bad); !errors.Is(err, md.ErrBarostatFrequency) {
			t.Errorf("frequency %d: expected ErrBarostatFrequency, got %v", bad, err)
		}
	}
	if err := e.AttachBarostat(1000, 50); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.DetachBarostat(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIntegrateValidation(t *testing.T) {
	e := smallEngine()
	for _, bad := range []int{0, -10} {
		if err := e.Integrate(bad); !errors.Is(err, ErrSteps) {
			t.Errorf("steps %d: expected ErrSteps, got %v", bad, err)
		}
	}
}

func TestIntegrateKeepsStateFinite(t *testing.T) {
	e := smallEngine()
	if err := e.SetTemperature(300); err != nil {
		t.Fatalf("set temperature: %v", err)
	}
	if err := e.Integrate(200); err != nil {
		t.Fatalf("integrate: %v", err)
	}

	state, err := e.ReadState()
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if !state.Finite() {
		t.Fatalf("state diverged: %+v", state)
	}
	if state.Volume <= 0 || math.IsNaN(state.Pressure) {
		t.Errorf("implausible readback: %+v", state)
	}
}

func TestBarostatChangesVolume(t *testing.T) {
	e := smallEngine()
	before, _ := e.ReadState()

	if err := e.AttachBarostat(5_000, 10); err != nil {
		t.Fatalf("attach barostat: %v", err)
	}
	if err := e.Integrate(500); err != nil {
		t.Fatalf("integrate: %v", err)
	}

	after, err := e.ReadState()
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if after.Volume == before.Volume {
		t.Error("expected volume moves under barostat coupling")
	}
	if !after.Finite() || after.Volume <= 0 {
		t.Errorf("state diverged under barostat: %+v", after)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	run := func() md.State {
		e := New(Config{Particles: 32, Seed: 7})
		if err := e.SetTemperature(300); err != nil {
			t.Fatalf("set temperature: %v", err)
		}
		if err := e.Integrate(100); err != nil {
			t.Fatalf("integrate: %v", err)
		}
		s, err := e.ReadState()
		if err != nil {
			t.Fatalf("read state: %v", err)
		}
		return s
	}

	if a, b := run(), run(); a != b {
		t.Errorf("same seed produced different states:\n%+v\n%+v", a, b)
	}
}
