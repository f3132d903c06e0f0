// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package policy implements spec §4.6: an ordered list of
// (name, predicate, configurator) triples resolving, for a given envelope,
// the destination topic, stream key, executor type, partition count and
// size limits -- plus the diagnostic decision trail attached to every
// evaluation.
package policy

import (
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// ExecutorKind selects which executor (spec §4.4) a matched policy routes
// work through.
type ExecutorKind string

const (
	ExecutorSerial   ExecutorKind = "serial"
	ExecutorParallel ExecutorKind = "parallel"
)

// SizeEnforcement decides what happens when an envelope exceeds
// Configuration.MaxDataSizeBytes.
type SizeEnforcement string

const (
	SizeIgnore SizeEnforcement = "ignore"
	SizeWarn   SizeEnforcement = "warn"
	SizeBlock  SizeEnforcement = "block"
)

// Configuration is what a matched policy resolves for one envelope: the
// destination topic, the stream key perspectives/executors key off of, the
// executor kind, the partition count for hashing, and the size-limit
// enforcement mode.
type Configuration struct {
	Topic            string
	StreamKey        string
	Executor         ExecutorKind
	PartitionCount   int32
	MaxDataSizeBytes int
	SizeEnforcement  SizeEnforcement
}

// Context is everything a predicate or configurator needs to decide how an
// envelope should be routed.
type Context struct {
	MessageType string
	IsEvent     bool
	Envelope    *wmodel.Envelope
}

// Predicate reports whether a policy applies to ctx.
type Predicate func(ctx Context) bool

// Configurator produces the Configuration for a matched policy.
type Configurator func(ctx Context) Configuration

// Policy is one (name, predicate, configurator) triple.
type Policy struct {
	Name         string
	Predicate    Predicate
	Configurator Configurator
}

// Engine evaluates an ordered list of policies against an envelope,
// accumulating matches rather than short-circuiting: one policy's match
// does not prevent a later policy from also contributing destinations, per
// spec §4.6's "accumulated, not short-circuited" rule. The first matching
// policy's Configuration is what MatchAsync returns as the winning
// routing decision; every evaluation -- hit, miss, or predicate panic -- is
// appended to the decision trail.
type Engine struct {
	policies []Policy
}

// NewEngine builds an Engine over policies, evaluated in the given order.
func NewEngine(policies []Policy) *Engine {
	cp := make([]Policy, len(policies))
	copy(cp, policies)

	return &Engine{policies: cp}
}

// Result is what MatchAsync returns: the winning Configuration from the
// first matching policy (if any), plus every destination contributed by
// every policy that matched, and the full decision trail.
type Result struct {
	Configuration *Configuration
	Destinations  []wmodel.Destination
	Trail         []wmodel.DecisionTrailEntry
}

// MatchAsync evaluates every policy against ctx in order. It is named
// "Async" (spec §4.6) because a real deployment's configurators may
// resolve topics through a remote schema/topic registry; this
// implementation's Configurator is synchronous, so MatchAsync itself never
// blocks, but the name is kept to match the source interface it replaces.
func (e *Engine) MatchAsync(ctx Context) Result {
	var result Result

	for _, p := range e.policies {
		matched, entry := evaluate(p, ctx)
		result.Trail = append(result.Trail, entry)

		if !matched {
			continue
		}

		cfg := p.Configurator(ctx)

		if result.Configuration == nil {
			cfgCopy := cfg
			result.Configuration = &cfgCopy
		}

		result.Destinations = append(result.Destinations, wmodel.Destination{
			Address: cfg.Topic,
		})
	}

	return result
}

func evaluate(p Policy, ctx Context) (matched bool, entry wmodel.DecisionTrailEntry) {
	defer func() {
		if r := recover(); r != nil {
			entry = wmodel.DecisionTrailEntry{PolicyName: p.Name, Matched: false, Error: panicToError(r)}
			matched = false
		}
	}()

	matched = p.Predicate(ctx)

	return matched, wmodel.DecisionTrailEntry{PolicyName: p.Name, Matched: matched}
}

func panicToError(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "policy predicate panicked"
	}
}

// DefaultConfiguration returns the fallback configuration applied when no
// policy matches: a single partition, serial executor, size enforcement
// set to warn, per wconstant's documented defaults.
func DefaultConfiguration(topic, streamKey string) Configuration {
	return Configuration{
		Topic:            topic,
		StreamKey:        streamKey,
		Executor:         ExecutorSerial,
		PartitionCount:   wconstant.DefaultPartitionCount,
		MaxDataSizeBytes: wconstant.DefaultMaxDataSizeBytes,
		SizeEnforcement:  SizeWarn,
	}
}
