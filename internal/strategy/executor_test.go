package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(results ...func() (bool, string)) []Strategy {
	strategies := make([]Strategy, len(results))
	for i, fn := range results {
		strategies[i] = Strategy{Name: string(rune('a' + i)), Run: fn}
	}
	return strategies
}

func succeed(detail string) func() (bool, string) {
	return func() (bool, string) { return true, detail }
}

func fail(detail string) func() (bool, string) {
	return func() (bool, string) { return false, detail }
}

func TestRun_EarlyExitOnVerifiedSuccess(t *testing.T) {
	third := 0
	exec := &Executor{
		Probe:   func() string { return "up" },
		Healthy: func(s string) bool { return s == "up" },
	}

	strategies := chain(
		fail("no radio device"),
		succeed("adapter enabled"),
		func() (bool, string) { third++; return true, "should never run" },
	)

	res := exec.Run(strategies)

	// Two attempts plus the verify step; the third strategy is never invoked.
	require.Len(t, res.Steps, 3)
	assert.Equal(t, 0, third)
	assert.False(t, res.Steps[0].OK)
	assert.True(t, res.Steps[1].OK)
	assert.Equal(t, "verify", res.Steps[2].Name)
	assert.Equal(t, "up", res.FinalState)
}

func TestRun_SuccessWithoutVerificationContinues(t *testing.T) {
	probes := 0
	exec := &Executor{
		// First probe (after strategy 1) sees "down"; second (after
		// strategy 2) sees "up".
		Probe: func() string {
			probes++
			if probes < 2 {
				return "down"
			}
			return "up"
		},
		Healthy: func(s string) bool { return s == "up" },
	}

	res := exec.Run(chain(succeed("touched adapter, radio still off"), succeed("radio on")))

	require.Len(t, res.Steps, 3)
	assert.Equal(t, "up", res.FinalState)
	assert.Equal(t, 2, probes)
}

func TestRun_ExhaustedChainReturnsNormally(t *testing.T) {
	exec := &Executor{
		Probe:   func() string { return "down" },
		Healthy: func(s string) bool { return s == "up" },
	}

	res := exec.Run(chain(fail("a"), fail("b"), fail("c")))

	// All N attempts plus one final verify step, no error.
	require.Len(t, res.Steps, 4)
	final := res.Steps[3]
	assert.Equal(t, "verify", final.Name)
	assert.False(t, final.OK)
	assert.Equal(t, "down", res.FinalState)
}

func TestRun_EmptyChainStillProbes(t *testing.T) {
	exec := &Executor{
		Probe:   func() string { return "up" },
		Healthy: func(s string) bool { return s == "up" },
	}

	res := exec.Run(nil)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "verify", res.Steps[0].Name)
	assert.Equal(t, "up", res.FinalState)
}
