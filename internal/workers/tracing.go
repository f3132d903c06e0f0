// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package workers

import "go.opentelemetry.io/otel"

// tracer instruments each worker's poll cycle, the same way
// coordination.Store instruments the process_work_batch round trip it
// wraps -- one span per cycle, covering the Flush call and whatever the
// cycle does with the work it returns.
var tracer = otel.Tracer("github.com/LerianStudio/workhub/internal/workers")
