// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package dispatcher implements spec §4.2: the local entry point producers
// hand commands and events to. It stamps an envelope, resolves routing
// through the policy engine, and either runs a local receptor inline or
// enqueues an outbox row through the work coordinator strategy.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"github.com/google/uuid"

	"github.com/LerianStudio/workhub/internal/association"
	"github.com/LerianStudio/workhub/internal/executor"
	"github.com/LerianStudio/workhub/internal/policy"
	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// Receptor is the host-supplied handler for a local command. Interface-
// capability composition per spec §9's re-architecture guidance: a
// receptor is just "something that can run a command", never a class
// hierarchy.
type Receptor interface {
	Handle(ctx context.Context, messageType string, payload any) error
}

// ReceptorFunc adapts a plain function to the Receptor interface.
type ReceptorFunc func(ctx context.Context, messageType string, payload any) error

// Handle implements Receptor.
func (f ReceptorFunc) Handle(ctx context.Context, messageType string, payload any) error {
	return f(ctx, messageType, payload)
}

// Flusher is the subset of workcoordinator.Strategy the dispatcher needs:
// queue an outbox row for later publication. Declared here, not imported,
// so dispatcher never depends on workcoordinator's concrete type -- the
// dependency points the other way (workcoordinator has no need to know
// about dispatcher).
type Flusher interface {
	EnqueueOutbox(row wmodel.NewOutboxRow)
}

// Dispatcher is the local routing entry point: spec §4.2's "caller hands a
// message to the dispatcher" step.
type Dispatcher struct {
	identity  string
	registry  *association.Registry
	policies  *policy.Engine
	receptors map[string]Receptor
	fleet     *executor.Fleet
	flusher   Flusher
	logger    libLog.Logger
}

// New builds a Dispatcher. identity names the service instance stamped
// into every hop; receptors maps a command's message type to the local
// handler invoked inline when one is registered.
func New(identity string, registry *association.Registry, policies *policy.Engine, receptors map[string]Receptor, fleet *executor.Fleet, flusher Flusher, logger libLog.Logger) *Dispatcher {
	return &Dispatcher{
		identity:  identity,
		registry:  registry,
		policies:  policies,
		receptors: receptors,
		fleet:     fleet,
		flusher:   flusher,
		logger:    logger,
	}
}

// DispatchCommand implements the command half of spec §4.2's data flow: a
// command with a local receptor registered runs inline through the
// executor fleet (stream-key FIFO); one without enqueues an outbox row
// with is_event=false.
func (d *Dispatcher) DispatchCommand(ctx context.Context, messageType, streamKey string, payload any) (wmodel.DeliveryReceipt, error) {
	env, err := d.stampEnvelope(messageType, streamKey, payload)
	if err != nil {
		return wmodel.DeliveryReceipt{Status: wconstant.DeliveryFailed, Error: err.Error()}, err
	}

	if receptor, ok := d.receptors[messageType]; ok {
		handle, err := d.fleet.Submit(ctx, streamKey, func(ctx context.Context) error {
			return receptor.Handle(ctx, messageType, payload)
		})
		if err != nil {
			return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryFailed, Error: err.Error()}, err
		}

		if err := handle.Wait(ctx); err != nil {
			d.logger.Warnf("workhub: receptor %s failed: %v", messageType, err)

			return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryFailed, Error: err.Error()}, nil
		}

		return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryDelivered}, nil
	}

	cfg := d.resolve(messageType, streamKey, env, false)
	if err := d.enqueue(env, cfg, streamKey, false); err != nil {
		return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryFailed, Error: err.Error()}, err
	}

	return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryQueued}, nil
}

// DispatchEvent implements the event half of spec §4.2: events are never
// executed locally in the publish path, only enqueued with is_event=true
// so the batch function persists them into the event store.
func (d *Dispatcher) DispatchEvent(ctx context.Context, messageType, streamKey string, payload any) (wmodel.DeliveryReceipt, error) {
	env, err := d.stampEnvelope(messageType, streamKey, payload)
	if err != nil {
		return wmodel.DeliveryReceipt{Status: wconstant.DeliveryFailed, Error: err.Error()}, err
	}

	cfg := d.resolve(messageType, streamKey, env, true)
	if err := d.enqueue(env, cfg, streamKey, true); err != nil {
		return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryFailed, Error: err.Error()}, err
	}

	return wmodel.DeliveryReceipt{MessageID: env.MessageID, Status: wconstant.DeliveryQueued}, nil
}

func (d *Dispatcher) resolve(messageType, streamKey string, env *wmodel.Envelope, isEvent bool) policy.Configuration {
	result := d.policies.MatchAsync(policy.Context{MessageType: messageType, IsEvent: isEvent, Envelope: env})
	env.DecisionTrail = result.Trail

	if result.Configuration != nil {
		return *result.Configuration
	}

	return policy.DefaultConfiguration(messageType, streamKey)
}

func (d *Dispatcher) enqueue(env *wmodel.Envelope, cfg policy.Configuration, streamKey string, isEvent bool) error {
	payloadMap, err := toMap(env.Payload)
	if err != nil {
		return fmt.Errorf("workhub: marshal envelope payload: %w", err)
	}

	if size := envelopeSize(env); cfg.SizeEnforcement == policy.SizeBlock && size > cfg.MaxDataSizeBytes {
		return fmt.Errorf("workhub: envelope %s exceeds MaxDataSizeBytes (%d > %d)", env.MessageID, size, cfg.MaxDataSizeBytes)
	} else if cfg.SizeEnforcement == policy.SizeWarn && size > cfg.MaxDataSizeBytes {
		d.logger.Warnf("workhub: envelope %s is %d bytes, exceeding MaxDataSizeBytes=%d", env.MessageID, size, cfg.MaxDataSizeBytes)
	}

	d.flusher.EnqueueOutbox(wmodel.NewOutboxRow{
		MessageID:       env.MessageID,
		Destination:     cfg.Topic,
		EventType:       env.EnvelopeType,
		EnvelopeType:    env.EnvelopeType,
		Envelope:        payloadMap,
		StreamID:        streamKey,
		PartitionNumber: partitionFor(streamKey, cfg.PartitionCount),
		IsEvent:         isEvent,
	})

	return nil
}

func (d *Dispatcher) stampEnvelope(messageType, streamKey string, payload any) (*wmodel.Envelope, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("workhub: generate message id: %w", err)
	}

	env := &wmodel.Envelope{
		MessageID:    id.String(),
		EnvelopeType: messageType,
		Payload:      payload,
	}

	env.AppendHop(wmodel.Hop{
		ServiceInstance: d.identity,
		Timestamp:       time.Now().UTC(),
		StreamKey:       streamKey,
	})

	return env, nil
}

func toMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}

	if m, ok := v.(map[string]any); ok {
		return m, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	return m, nil
}

func envelopeSize(env *wmodel.Envelope) int {
	b, err := json.Marshal(env)
	if err != nil {
		return 0
	}

	return len(b)
}

// partitionFor hashes streamKey into [0, partitionCount), the
// "partition integer 0..N-1 derived from the stream id" spec's glossary
// describes.
func partitionFor(streamKey string, partitionCount int32) int32 {
	if partitionCount <= 0 {
		partitionCount = wconstant.DefaultPartitionCount
	}

	var h uint32 = 2166136261

	for i := 0; i < len(streamKey); i++ {
		h ^= uint32(streamKey[i])
		h *= 16777619
	}

	return int32(h % uint32(partitionCount))
}
