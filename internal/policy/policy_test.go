// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_FirstMatchWins(t *testing.T) {
	e := NewEngine([]Policy{
		{
			Name:      "events",
			Predicate: func(ctx Context) bool { return ctx.IsEvent },
			Configurator: func(ctx Context) Configuration {
				return Configuration{Topic: "events-topic", Executor: ExecutorParallel}
			},
		},
		{
			Name:      "catch-all",
			Predicate: func(Context) bool { return true },
			Configurator: func(ctx Context) Configuration {
				return Configuration{Topic: "commands-topic", Executor: ExecutorSerial}
			},
		},
	})

	result := e.MatchAsync(Context{IsEvent: true})
	require.NotNil(t, result.Configuration)
	assert.Equal(t, "events-topic", result.Configuration.Topic)
	assert.Len(t, result.Trail, 2)
	assert.True(t, result.Trail[0].Matched)
}

func TestEngine_AccumulatesDestinationsAcrossMatches(t *testing.T) {
	e := NewEngine([]Policy{
		{
			Name:      "audit",
			Predicate: func(Context) bool { return true },
			Configurator: func(Context) Configuration {
				return Configuration{Topic: "audit-topic"}
			},
		},
		{
			Name:      "primary",
			Predicate: func(Context) bool { return true },
			Configurator: func(Context) Configuration {
				return Configuration{Topic: "primary-topic"}
			},
		},
	})

	result := e.MatchAsync(Context{})
	require.Len(t, result.Destinations, 2)
	assert.Equal(t, "audit-topic", result.Destinations[0].Address)
	assert.Equal(t, "primary-topic", result.Destinations[1].Address)
	// First match wins for the winning Configuration even though both matched.
	assert.Equal(t, "audit-topic", result.Configuration.Topic)
}

func TestEngine_PredicatePanicIsRecordedAsMissNotCrash(t *testing.T) {
	e := NewEngine([]Policy{
		{
			Name:      "flaky",
			Predicate: func(Context) bool { panic("boom") },
			Configurator: func(Context) Configuration {
				return Configuration{}
			},
		},
	})

	result := e.MatchAsync(Context{})
	assert.Nil(t, result.Configuration)
	require.Len(t, result.Trail, 1)
	assert.False(t, result.Trail[0].Matched)
	assert.Equal(t, "boom", result.Trail[0].Error)
}

func TestEngine_NoMatchLeavesConfigurationNil(t *testing.T) {
	e := NewEngine([]Policy{
		{Name: "never", Predicate: func(Context) bool { return false }, Configurator: func(Context) Configuration { return Configuration{} }},
	})

	result := e.MatchAsync(Context{})
	assert.Nil(t, result.Configuration)
	assert.Empty(t, result.Destinations)
}
