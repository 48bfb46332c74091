package system

import (
	"context"

	"aimatrix/pkg/cache"
	"aimatrix/pkg/core"
)

// CachedSystem wraps a System with the on-disk response cache.
//
// Replaying cached outputs collapses trial-to-trial variance, so this
// wrapper is only for re-running analysis over a finished matrix (or
// iterating on validators) without paying for live calls again. Do not
// use it when measuring consistency of a live system.
type CachedSystem struct {
	System core.System
	Cache  *cache.Cache
}

func (c CachedSystem) Name() string {
	if c.System == nil {
		return ""
	}
	return c.System.Name()
}

func (c CachedSystem) Invoke(ctx context.Context, cfg core.Configuration, input string) (core.Invocation, error) {
	if c.System == nil {
		return core.Invocation{}, nil
	}
	configHash := cfg.Hash()
	if c.Cache != nil {
		if output, ok := c.Cache.Get(c.Name(), configHash, input); ok {
			return core.Invocation{Output: output}, nil
		}
	}
	invocation, err := c.System.Invoke(ctx, cfg, input)
	if err != nil {
		return core.Invocation{}, err
	}
	if c.Cache != nil {
		_ = c.Cache.Set(c.Name(), configHash, input, invocation.Output)
	}
	return invocation, nil
}
