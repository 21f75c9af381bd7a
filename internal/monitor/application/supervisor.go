package application

import (
	"context"
	"log"
	"sync"
	"time"
)

// Supervisor runs one tick loop per monitored entity. Entities are fully
// independent instances with no shared mutable state.
type Supervisor struct {
	engines []*Engine
	logger  *log.Logger
}

// NewSupervisor constructs a supervisor over the given engines.
func NewSupervisor(engines []*Engine, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.Default()
	}
	return &Supervisor{engines: engines, logger: logger}
}

// Start launches a ticker loop for every engine and blocks until the context
// is canceled.
func (s *Supervisor) Start(ctx context.Context) {
	if s == nil || len(s.engines) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, engine := range s.engines {
		if engine == nil {
			continue
		}
		wg.Add(1)
		go func(engine *Engine) {
			defer wg.Done()
			s.run(ctx, engine)
		}(engine)
	}
	wg.Wait()
}

func (s *Supervisor) run(ctx context.Context, engine *Engine) {
	// First evaluation fires immediately so the detector seeds from the
	// current sample at startup.
	engine.Tick(ctx, time.Now().UTC())

	ticker := time.NewTicker(engine.settings.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("%s: monitor loop stopped", engine.Entity())
			return
		case now := <-ticker.C:
			engine.Tick(ctx, now.UTC())
		}
	}
}
