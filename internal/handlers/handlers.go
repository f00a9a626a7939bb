package handlers

import (
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/media"
	"thumbnailer/internal/startup"
)

// PauseReporter reports whether new work is held back. *memory.Monitor
// implements it.
type PauseReporter interface {
	IsPaused() bool
}

// Handlers serves the thumbnail API.
type Handlers struct {
	thumbGen  *media.ThumbnailGenerator
	engine    backend.Backend
	probes    map[string]error
	pressure  PauseReporter
	config    *startup.Config
	startTime time.Time
}

// New creates the handlers. probes holds the availability result of every
// engine that was considered; pressure may be nil.
func New(thumbGen *media.ThumbnailGenerator, probes map[string]error, pressure PauseReporter, config *startup.Config) *Handlers {
	return &Handlers{
		thumbGen:  thumbGen,
		engine:    thumbGen.Engine(),
		probes:    probes,
		pressure:  pressure,
		config:    config,
		startTime: time.Now(),
	}
}
