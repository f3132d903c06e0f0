// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	libZap "github.com/LerianStudio/lib-commons/v2/commons/zap"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcwait "github.com/testcontainers/testcontainers-go/wait"

	"github.com/LerianStudio/workhub/internal/admin"
	"github.com/LerianStudio/workhub/internal/coordination"
)

// AdminSuite boots one real Postgres per suite run, matching the
// store_integration_test.go container-per-suite pattern.
type AdminSuite struct {
	suite.Suite

	pool *pgxpool.Pool
}

func (s *AdminSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("workhub"),
		postgres.WithUsername("workhub"),
		postgres.WithPassword("workhub"),
		tcwait.ForListeningPort("5432/tcp").WithStartupTimeout(30*time.Second),
	)
	s.Require().NoError(err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(coordination.Migrate(dsn))

	pool, err := coordination.Connect(ctx, dsn)
	s.Require().NoError(err)

	s.pool = pool
}

func (s *AdminSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *AdminSuite) TestHealthzReportsUp() {
	logger, err := libZap.InitializeLoggerWithError()
	s.Require().NoError(err)

	srv := admin.New(s.pool, "workhub", logger, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := srv.App().Test(req)
	s.Require().NoError(err)
	s.Equal(200, resp.StatusCode)
}

func (s *AdminSuite) TestMetricsReportsThreeTables() {
	logger, err := libZap.InitializeLoggerWithError()
	s.Require().NoError(err)

	srv := admin.New(s.pool, "workhub", logger, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := srv.App().Test(req)
	s.Require().NoError(err)
	s.Equal(200, resp.StatusCode)

	var rows []admin.TableCounts
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&rows))
	s.Len(rows, 3)
}

func (s *AdminSuite) TestFlushSurfacesHookError() {
	logger, err := libZap.InitializeLoggerWithError()
	s.Require().NoError(err)

	wantErr := errors.New("boom")
	srv := admin.New(s.pool, "workhub", logger, func(context.Context) error { return wantErr })

	req := httptest.NewRequest("POST", "/internal/flush", nil)
	resp, err := srv.App().Test(req)
	s.Require().NoError(err)
	s.Equal(500, resp.StatusCode)
}

func (s *AdminSuite) TestFlushNoHookConfiguredReturnsNotImplemented() {
	logger, err := libZap.InitializeLoggerWithError()
	s.Require().NoError(err)

	srv := admin.New(s.pool, "workhub", logger, nil)

	req := httptest.NewRequest("POST", "/internal/flush", nil)
	resp, err := srv.App().Test(req)
	s.Require().NoError(err)
	s.Equal(501, resp.StatusCode)
}

func TestAdminSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	suite.Run(t, new(AdminSuite))
}
