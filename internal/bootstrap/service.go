// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	libCommons "github.com/LerianStudio/lib-commons/v2/commons"
	libLog "github.com/LerianStudio/lib-commons/v2/commons/log"

	"github.com/LerianStudio/workhub/internal/dispatcher"
)

// Service is the application glue where every top level component is put
// together to be used from main.go, mirroring crm's bootstrap.Service.
type Service struct {
	*Server
	libLog.Logger

	// Dispatcher is the local entry point a host application calls into
	// to submit commands and events (spec §4.2). main.go and any embedding
	// application reach it through Service, not through bootstrap internals.
	Dispatcher *dispatcher.Dispatcher
}

// Run starts the admin HTTP surface and all three worker loops under one
// Launcher, so a panic or early return in one is reported without taking
// the others down, and the whole process exits once every App returns.
func (app *Service) Run() {
	libCommons.NewLauncher(
		libCommons.WithLogger(app.Logger),
		libCommons.RunApp("Admin HTTP Server", app.Server),
		libCommons.RunApp("Publisher Worker", app.Server.PublisherApp()),
		libCommons.RunApp("Perspective Worker", app.Server.PerspectiveApp()),
		libCommons.RunApp("Transport Consumer Worker", app.Server.ConsumerApp()),
	).Run()
}
