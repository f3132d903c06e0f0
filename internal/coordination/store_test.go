// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/workhub/pkg/wmodel"
)

func TestTransitionsToJSON_EmptyInputReturnsNil(t *testing.T) {
	out := transitionsToJSON[wmodel.OutboxTransition, jsonTransition](nil, func(t wmodel.OutboxTransition) jsonTransition {
		return jsonTransition{RowID: t.MessageID}
	})

	assert.Nil(t, out)
}

func TestTransitionsToJSON_ConvertsEveryElement(t *testing.T) {
	in := []wmodel.OutboxTransition{
		{MessageID: "m1", Failed: true, Error: "boom"},
		{MessageID: "m2"},
	}

	out := transitionsToJSON(in, func(t wmodel.OutboxTransition) jsonTransition {
		return jsonTransition{RowID: t.MessageID, Failed: t.Failed, Error: t.Error}
	})

	assert.Equal(t, []jsonTransition{
		{RowID: "m1", Failed: true, Error: "boom"},
		{RowID: "m2"},
	}, out)
}

func TestMustMarshal_NilReturnsNil(t *testing.T) {
	assert.Nil(t, mustMarshal(nil))
}

func TestMustMarshal_MarshalsValue(t *testing.T) {
	b := mustMarshal(map[string]any{"a": 1})
	assert.JSONEq(t, `{"a":1}`, string(b))
}

func TestToMap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, toMap(nil))
}

func TestToMap_PassesThroughMap(t *testing.T) {
	m := map[string]any{"a": "b"}
	assert.Equal(t, m, toMap(m))
}

func TestToMap_NonMapReturnsNil(t *testing.T) {
	assert.Nil(t, toMap("not a map"))
}
