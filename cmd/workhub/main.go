// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Command workhub runs the coordination engine's admin HTTP surface and
// its three worker loops (publisher, perspective, transport consumer) as
// one process. A host application embedding workhub as a library instead
// of running this binary calls bootstrap.InitServersWithOptions directly
// and uses the returned Service.Dispatcher to submit commands and events.
package main

import (
	"fmt"
	"os"

	libCommons "github.com/LerianStudio/lib-commons/v2/commons"
	libZap "github.com/LerianStudio/lib-commons/v2/commons/zap"

	"github.com/LerianStudio/workhub/internal/bootstrap"
)

func main() {
	libCommons.InitLocalEnvConfig()

	logger, err := libZap.InitializeLoggerWithError()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	service, err := bootstrap.InitServersWithOptions(&bootstrap.Options{
		Logger: logger,
	})
	if err != nil {
		logger.Errorf("Failed to initialize workhub service: %v", err)
		_ = logger.Sync()

		os.Exit(1)
	}

	service.Run()
}
