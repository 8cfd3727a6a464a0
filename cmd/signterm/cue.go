package main

import (
	"log/slog"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	cueSampleRate = beep.SampleRate(44100)
	cueFrequency  = 660
	cueLength     = 60 * time.Millisecond
)

// cue plays a short tone when the avatar starts holding a sign.
type cue struct {
	enabled bool
	logger  *slog.Logger
}

// newCue opens the speaker. Audio failures are not fatal: the cue stays silent.
func newCue(enabled bool, logger *slog.Logger) *cue {
	c := &cue{logger: logger}
	if !enabled {
		return c
	}
	if err := speaker.Init(cueSampleRate, cueSampleRate.N(100*time.Millisecond)); err != nil {
		logger.Warn("audio disabled", "error", err)
		return c
	}
	c.enabled = true
	return c
}

func (c *cue) play() {
	if !c.enabled {
		return
	}
	sine, err := generators.SineTone(cueSampleRate, cueFrequency)
	if err != nil {
		c.logger.Warn("cue tone", "error", err)
		return
	}
	speaker.Play(beep.Take(cueSampleRate.N(cueLength), sine))
}

func (c *cue) close() {
	if c.enabled {
		speaker.Close()
		c.enabled = false
	}
}
