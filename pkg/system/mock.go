package system

import (
	"context"
	"sync"
	"time"

	"aimatrix/pkg/core"
)

// Step is one scripted call outcome.
type Step struct {
	Output string
	Err    error
}

// ScriptedSystem replays a fixed script of outcomes, cycling when the
// script runs out. With an empty script it echoes the input. Delay is
// applied per call and respects context cancellation, which makes
// timeout and cancellation paths reproducible in tests.
type ScriptedSystem struct {
	NameValue string
	Script    []Step
	Delay     time.Duration

	mu    sync.Mutex
	calls int
}

func (s *ScriptedSystem) Name() string {
	if s.NameValue == "" {
		return "scripted"
	}
	return s.NameValue
}

// Calls reports how many invocations the system has served.
func (s *ScriptedSystem) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *ScriptedSystem) Invoke(ctx context.Context, _ core.Configuration, input string) (core.Invocation, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return core.Invocation{}, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return core.Invocation{}, err
	}

	if len(s.Script) == 0 {
		return core.Invocation{Output: input}, nil
	}
	step := s.Script[call%len(s.Script)]
	if step.Err != nil {
		return core.Invocation{}, step.Err
	}
	return core.Invocation{Output: step.Output}, nil
}
