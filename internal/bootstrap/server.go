// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"context"

	libCommons "github.com/LerianStudio/lib-commons/v2/commons"
	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"
	libOpentelemetry "github.com/LerianStudio/lib-commons/v2/commons/opentelemetry"

	"github.com/LerianStudio/workhub/internal/admin"
	"github.com/LerianStudio/workhub/internal/executor"
	"github.com/LerianStudio/workhub/internal/workers"
)

// Server bundles every long-running component the process hosts: the
// admin HTTP surface and the three worker loops. Each is adapted to
// libCommons.App so a single Launcher (Service.Run) starts all of them
// together, the way crm's Server wraps one fiber app for
// libCommonsServer's manager.
type Server struct {
	cfg       *Config
	logger    libLog.Logger
	telemetry libOpentelemetry.Telemetry
	admin     *admin.Server
	publisher *workers.Publisher
	perspective *workers.Perspective
	consumer *workers.TransportConsumer
	fleet    *executor.Fleet
}

// NewServer builds the Server bundle.
func NewServer(cfg *Config, logger libLog.Logger, telemetry *libOpentelemetry.Telemetry, adminSrv *admin.Server, publisher *workers.Publisher, perspective *workers.Perspective, consumer *workers.TransportConsumer, fleet *executor.Fleet) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		telemetry:   *telemetry,
		admin:       adminSrv,
		publisher:   publisher,
		perspective: perspective,
		consumer:    consumer,
		fleet:       fleet,
	}
}

// Run implements libCommons.App: it starts the admin HTTP surface and
// blocks serving it. The worker loops are started separately by Service.Run
// as their own libCommons.App entries, so a crash in one loop surfaces
// independently instead of taking the admin surface down with it.
func (s *Server) Run(l *libCommons.Launcher) error {
	return s.admin.Listen(s.cfg.AdminAddress)
}

// workerApp adapts a single worker's Run(ctx) error loop to
// libCommons.App, which expects Run(launcher) error with no context. A
// background context is used and nothing cancels it: no shutdown signal is
// forwarded to the worker, so its loop runs until the process exits.
type workerApp struct {
	run func(ctx context.Context) error
}

func (w workerApp) Run(*libCommons.Launcher) error {
	return w.run(context.Background())
}

// PublisherApp adapts the publisher worker loop to the libCommons.App
// shape RunApp expects.
func (s *Server) PublisherApp() workerApp { return workerApp{run: s.publisher.Run} }

// PerspectiveApp adapts the perspective worker loop to the libCommons.App
// shape RunApp expects.
func (s *Server) PerspectiveApp() workerApp { return workerApp{run: s.perspective.Run} }

// ConsumerApp adapts the transport-consumer worker's Stop-on-cancel
// lifecycle to the same shape: the loop waits for cancellation and then
// runs the drain-then-stop sequence. Its context is workerApp's background
// context, which is never cancelled, and InitServersWithOptions registers
// no subscriptions on the consumer.
func (s *Server) ConsumerApp() workerApp {
	return workerApp{run: func(ctx context.Context) error {
		<-ctx.Done()
		return s.consumer.Stop(context.Background())
	}}
}
