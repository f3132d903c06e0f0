// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

//go:build chaos

package coordination_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	toxiproxyclient "github.com/Shopify/toxiproxy/v2/client"
	"github.com/docker/docker/api/types/container"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tctoxiproxy "github.com/testcontainers/testcontainers-go/modules/toxiproxy"
	tcwait "github.com/testcontainers/testcontainers-go/wait"

	"github.com/LerianStudio/workhub/internal/coordination"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

// ChaosSuite drives coordination.Store.ProcessBatch through a Toxiproxy
// proxy fronting the Postgres container, following the teacher's
// tests/utils/chaos SetupToxiproxy/CreateProxy pairing. P4 (lease recovery)
// itself is exercised deterministically through the batch function's
// explicit "now" parameter per spec §4.1 ("explicit parameter for
// determinism in tests"); the proxy is reserved for the §7
// coordination-store-unavailable scenario, where the test needs an actual
// severed connection rather than a simulated clock.
type ChaosSuite struct {
	suite.Suite

	pgContainer *postgres.PostgresContainer
	toxiC       testcontainers.Container
	toxiClient  *toxiproxyclient.Client
	proxy       *toxiproxyclient.Proxy

	pool  *pgxpool.Pool
	store *coordination.Store
}

func TestChaosSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	suite.Run(t, new(ChaosSuite))
}

func (s *ChaosSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("workhub"),
		postgres.WithUsername("workhub"),
		postgres.WithPassword("workhub"),
		tcwait.ForListeningPort("5432/tcp").WithStartupTimeout(30*time.Second),
	)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	toxiC, err := tctoxiproxy.Run(ctx, "ghcr.io/shopify/toxiproxy:2.12.0",
		testcontainers.WithExposedPorts("8666/tcp"),
		testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.ExtraHosts = append(hc.ExtraHosts, "host.docker.internal:host-gateway")
		}),
	)
	s.Require().NoError(err)
	s.toxiC = toxiC

	toxiHost, err := toxiC.Host(ctx)
	s.Require().NoError(err)

	toxiAPIPort, err := toxiC.MappedPort(ctx, "8474")
	s.Require().NoError(err)

	s.toxiClient = toxiproxyclient.NewClient(fmt.Sprintf("http://%s:%s", toxiHost, toxiAPIPort.Port()))

	proxy, err := s.toxiClient.CreateProxy("workhub-postgres", "0.0.0.0:8666",
		fmt.Sprintf("host.docker.internal:%s", pgPort.Port()))
	s.Require().NoError(err)
	s.proxy = proxy

	proxyPort, err := toxiC.MappedPort(ctx, "8666")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("postgres://workhub:workhub@%s:%s/workhub?sslmode=disable", toxiHost, proxyPort.Port())

	directDSN, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.Require().NoError(coordination.Migrate(directDSN))

	pool, err := coordination.Connect(ctx, dsn)
	s.Require().NoError(err)

	s.pool = pool
	s.store = coordination.NewStore(pool, "workhub", nil)
}

func (s *ChaosSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}

	if s.toxiC != nil {
		_ = s.toxiC.Terminate(context.Background())
	}

	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

func (s *ChaosSuite) identity(processID int32) wmodel.InstanceIdentity {
	return wmodel.InstanceIdentity{
		InstanceID:  uuid.NewString(),
		ServiceName: "workhub-chaos",
		HostName:    "localhost",
		ProcessID:   processID,
	}
}

// TestP4LeaseRecovery reproduces spec §8 scenario 4: instance-1 claims an
// outbox row and exits without completing it; after lease_duration + ε
// instance-2 must claim the same row with attempts bumped to 2, and the
// batch function accepts a completion report from whichever instance
// eventually finishes the work.
func (s *ChaosSuite) TestP4LeaseRecovery() {
	ctx := context.Background()
	instance1 := s.identity(1)
	instance2 := s.identity(2)

	messageID := uuid.NewString()
	baseline := time.Now()

	claimed, err := s.store.ProcessBatch(ctx, wmodel.BatchRequest{
		Identity:       instance1,
		Now:            baseline,
		LeaseDuration:  5 * time.Second,
		PartitionCount: 1,
		BatchSize:      10,
		NewOutbox: []wmodel.NewOutboxRow{{
			MessageID:   messageID,
			Destination: "local-queue",
			EventType:   "",
			EnvelopeType: "Command",
			Envelope:    map[string]any{"op": "restock"},
			StreamID:    uuid.NewString(),
			IsEvent:     false,
		}},
	})
	s.Require().NoError(err)
	s.Require().Len(claimed.OutboxWork, 1)
	s.Equal(int32(1), claimed.OutboxWork[0].Attempts)

	// instance-1 "crashes": it never reports completion. Before the lease
	// expires nobody else may claim the row.
	tooSoon, err := s.store.ProcessBatch(ctx, wmodel.BatchRequest{
		Identity:       instance2,
		Now:            baseline.Add(2 * time.Second),
		LeaseDuration:  5 * time.Second,
		PartitionCount: 1,
		BatchSize:      10,
	})
	s.Require().NoError(err)
	s.Empty(tooSoon.OutboxWork)

	// Past lease_duration + ε, instance-2 recovers the abandoned row.
	recovered, err := s.store.ProcessBatch(ctx, wmodel.BatchRequest{
		Identity:       instance2,
		Now:            baseline.Add(5*time.Second + 500*time.Millisecond),
		LeaseDuration:  5 * time.Second,
		PartitionCount: 1,
		BatchSize:      10,
	})
	s.Require().NoError(err)
	s.Require().Len(recovered.OutboxWork, 1)
	s.Equal(messageID, recovered.OutboxWork[0].MessageID)
	s.Equal(int32(2), recovered.OutboxWork[0].Attempts)
	s.Equal(instance2.InstanceID, *recovered.OutboxWork[0].InstanceID)

	// Completion reported by the recovering instance is accepted.
	_, err = s.store.ProcessBatch(ctx, wmodel.BatchRequest{
		Identity:       instance2,
		Now:            baseline.Add(6 * time.Second),
		LeaseDuration:  5 * time.Second,
		PartitionCount: 1,
		OutboxCompletions: []wmodel.OutboxTransition{{MessageID: messageID}},
	})
	s.Require().NoError(err)

	var status int32
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT status FROM workhub.wh_outbox WHERE message_id = $1`, messageID).Scan(&status))
	s.Equal(int32(4), status&4) // OutboxCompleted bit, see wconstant.OutboxCompleted
}

// TestCoordinationStoreUnavailable covers the §7 "coordination-store
// unavailable" taxonomy entry: with the Toxiproxy link to Postgres
// disconnected, ProcessBatch must return a normalized error rather than
// hang or panic, and must resume cleanly once the link is restored --
// mirroring the disconnect/reconnect pairing in the teacher's
// tests/utils/chaos/network.go Proxy helpers.
func (s *ChaosSuite) TestCoordinationStoreUnavailable() {
	ctx := context.Background()
	identity := s.identity(99)

	s.proxy.Enabled = false
	s.Require().NoError(s.proxy.Save())

	callCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.store.ProcessBatch(callCtx, wmodel.BatchRequest{
		Identity: identity, Now: time.Now(), LeaseDuration: 5 * time.Second, PartitionCount: 1, BatchSize: 10,
	})
	s.Require().Error(err)

	s.proxy.Enabled = true
	s.Require().NoError(s.proxy.Save())

	require.Eventually(s.T(), func() bool {
		_, err := s.store.ProcessBatch(ctx, wmodel.BatchRequest{
			Identity: identity, Now: time.Now(), LeaseDuration: 5 * time.Second, PartitionCount: 1, BatchSize: 10,
		})
		return err == nil
	}, 10*time.Second, 200*time.Millisecond)
}
