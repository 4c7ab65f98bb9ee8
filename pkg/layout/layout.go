// Package layout places graph nodes in 2D with a force-directed algorithm.
//
// Layouts run on a background Executor when one is available and fall back
// to running inline. Once the background executor fails it is not tried
// again for the lifetime of the Engine.
package layout

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

type Engine struct {
	primary  Executor
	fallback Executor
	settings Settings

	unavailable atomic.Bool
	warnOnce    sync.Once
}

// New creates a layout engine. primary may be nil, in which case every
// layout runs inline.
func New(primary Executor, settings Settings) *Engine {
	e := &Engine{primary: primary, fallback: Inline{}, settings: settings}
	if primary == nil {
		e.unavailable.Store(true)
	}
	return e
}

// Available reports whether the background executor is still in use.
func (e *Engine) Available() bool {
	return !e.unavailable.Load()
}

// Run lays out the current graph for iterations steps (the configured
// default when iterations <= 0) and writes x/y back onto the nodes that
// still exist. On failure prior positions are left untouched.
func (e *Engine) Run(ctx context.Context, g *graph.Store, iterations int) error {
	settings := e.settings
	if iterations > 0 {
		settings.Iterations = iterations
	}

	payload, err := EncodePayload(g.Get(), settings)
	if err != nil {
		return err
	}
	positions, err := e.execute(ctx, payload)
	if err != nil {
		logger.Warn("[Layout] Layout failed, keeping previous positions", "err", err)
		return err
	}

	for id, p := range positions {
		_ = g.UpdateNode(id, func(n *common.Node) error {
			n.Attributes.X = common.Float(p.X)
			n.Attributes.Y = common.Float(p.Y)
			return nil
		})
	}
	logger.Debug("[Layout] Layout applied", "nodes", len(positions), "iterations", settings.Iterations)
	return nil
}

func (e *Engine) execute(ctx context.Context, payload []byte) (map[string]Position, error) {
	if !e.unavailable.Load() {
		positions, err := e.primary.Run(ctx, payload)
		switch {
		case err == nil:
			return positions, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			e.markUnavailable(err)
		}
	}
	return e.fallback.Run(ctx, payload)
}

func (e *Engine) markUnavailable(err error) {
	e.unavailable.Store(true)
	e.warnOnce.Do(func() {
		logger.Warn("[Layout] Background executor unavailable, running layouts inline", "executor", e.primary.Name(), "err", err)
	})
}

// Close releases the background executor.
func (e *Engine) Close() error {
	if c, ok := e.primary.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
