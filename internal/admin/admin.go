// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package admin is the operator-facing HTTP surface spec_full §4.8 adds:
// health, per-table pending/in-flight/poison counts, and a manual
// out-of-cycle flush. It reports coordination-engine health, not domain
// read models, so it stays outside the read-model/"lens" scope spec §1
// excludes. Grounded in components/crm/internal/bootstrap/server.go's
// NewServer/fiber wiring and account.postgresql.go's squirrel.Select
// usage for the filter-shaped admin reads.
package admin

import (
	"context"
	"sync"
	"time"

	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	"github.com/Masterminds/squirrel"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LerianStudio/workhub/pkg/wconstant"
)

// TableCounts is one row of the /metrics response.
type TableCounts struct {
	Table    string `json:"table"`
	Pending  int64  `json:"pending"`
	InFlight int64  `json:"inFlight"`
	Poison   int64  `json:"poison"`
}

// Server is the fiber-backed operator surface. It talks to the
// coordination schema directly with squirrel-built read queries --
// never through process_work_batch, since these are diagnostic reads,
// not claims.
type Server struct {
	app    *fiber.App
	pool   *pgxpool.Pool
	schema string
	logger libLog.Logger
	flush  func(ctx context.Context) error

	mu        sync.RWMutex
	lastCycle time.Time
}

// New builds the admin fiber app. flush is invoked by POST /internal/flush;
// it is a plain func so callers can adapt a *workcoordinator.Strategy
// (whose Flush also returns a wmodel.BatchResult) with a one-line closure.
func New(pool *pgxpool.Pool, schema string, logger libLog.Logger, flush func(ctx context.Context) error) *Server {
	s := &Server{pool: pool, schema: schema, logger: logger, flush: flush}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/healthz", s.healthz)
	app.Get("/metrics", s.metrics)
	app.Post("/internal/flush", s.handleFlush)

	s.app = app

	return s
}

// App exposes the underlying fiber.App for tests and for mounting under a
// larger router.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the admin surface on addr; it blocks until the listener
// stops, matching fiber's own App.Listen contract.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the admin surface.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// NoteCycle records the time of a successful ProcessBatch call, for
// /healthz's "age of last successful batch cycle" reading. Workers call
// this after every cycle that returns without error.
func (s *Server) NoteCycle(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCycle = at
}

func (s *Server) healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "down",
			"error":  err.Error(),
		})
	}

	s.mu.RLock()
	last := s.lastCycle
	s.mu.RUnlock()

	body := fiber.Map{"status": "up"}

	if !last.IsZero() {
		body["lastCycleAt"] = last.UTC()
		body["lastCycleAgeSeconds"] = time.Since(last).Seconds()
	}

	return c.JSON(body)
}

// metrics reports pending/in-flight/poison counts for every claimable
// table, built with squirrel.Select the way account.postgresql.go builds
// its organization-scoped reads: one Select, a handful of conditional
// Where clauses, Dollar placeholders for pgx.
func (s *Server) metrics(c *fiber.Ctx) error {
	ctx := c.Context()

	rows := []TableCounts{}

	outbox, err := s.countBits(ctx, "wh_outbox", wconstant.OutboxClaimed|wconstant.OutboxInFlight, wconstant.OutboxInFlight, wconstant.OutboxPoison)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	outbox.Table = "outbox"
	rows = append(rows, outbox)

	inbox, err := s.countBits(ctx, "wh_inbox", wconstant.InboxClaimed, 0, 0)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	inbox.Table = "inbox"
	rows = append(rows, inbox)

	per, err := s.countBits(ctx, "wh_per_events", wconstant.PerspectiveEventClaimed|wconstant.PerspectiveEventInFlight, wconstant.PerspectiveEventInFlight, wconstant.PerspectiveEventPoison)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	per.Table = "perspective_events"
	rows = append(rows, per)

	return c.JSON(rows)
}

// countBits runs three squirrel-built COUNT queries against table,
// classifying rows by status bitmask. A zero mask is treated as "not
// tracked for this table" and always reports zero, since wh_inbox has
// no in-flight/poison bits of its own.
func (s *Server) countBits(ctx context.Context, table string, pendingMask, inFlightMask, poisonMask int32) (TableCounts, error) {
	var out TableCounts

	pending, err := s.countWhere(ctx, table, squirrel.Eq{"status": 0})
	if err != nil {
		return out, err
	}

	out.Pending = pending

	if inFlightMask != 0 {
		inFlight, err := s.countWhere(ctx, table, squirrel.Expr("status & ? != 0", inFlightMask))
		if err != nil {
			return out, err
		}

		out.InFlight = inFlight
	}

	if poisonMask != 0 {
		poison, err := s.countWhere(ctx, table, squirrel.Expr("status & ? != 0", poisonMask))
		if err != nil {
			return out, err
		}

		out.Poison = poison
	}

	return out, nil
}

func (s *Server) countWhere(ctx context.Context, table string, pred squirrel.Sqlizer) (int64, error) {
	sql, args, err := squirrel.
		Select("count(*)").
		From(s.schema+"."+table).
		Where(pred).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Server) handleFlush(c *fiber.Ctx) error {
	if s.flush == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "workhub: no flush hook configured")
	}

	if err := s.flush(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	s.NoteCycle(time.Now())

	return c.SendStatus(fiber.StatusNoContent)
}
