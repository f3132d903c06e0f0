// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package association

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

func TestStripTypeTokens_DropsVersionCultureAndPublicKeyToken(t *testing.T) {
	got := StripTypeTokens("T, A, Version=2.0.0.0, Culture=neutral, PublicKeyToken=abc")
	assert.Equal(t, "T, A", got)
}

func TestStripTypeTokens_BareTypeNameUnchanged(t *testing.T) {
	assert.Equal(t, "T", StripTypeTokens("T"))
}

func TestFuzzyTypeMatch_AgreesOnSimpleNameAndAssembly(t *testing.T) {
	assert.True(t, FuzzyTypeMatch(
		"T, A, Version=2.0.0.0, Culture=neutral, PublicKeyToken=abc",
		"T, A",
	))
}

func TestFuzzyTypeMatch_DifferentAssemblyNeverMatches(t *testing.T) {
	assert.False(t, FuzzyTypeMatch(
		"T, A, Version=2.0.0.0, Culture=neutral, PublicKeyToken=abc",
		"T, B",
	))
}

func TestFuzzyTypeMatch_BareTypeNameNeverMatches(t *testing.T) {
	assert.False(t, FuzzyTypeMatch("T", "T, A"))
	assert.False(t, FuzzyTypeMatch("T, A", "T"))
	assert.False(t, FuzzyTypeMatch("T", "T"))
}

func TestRegistry_MatchFiltersByAssociationTypeAndFuzzyMatch(t *testing.T) {
	r := NewRegistry([]wmodel.MessageAssociation{
		{MessageType: "T, A", AssociationType: wconstant.AssociationPerspective, TargetName: "inventory", ServiceName: "catalog"},
		{MessageType: "T, B", AssociationType: wconstant.AssociationPerspective, TargetName: "audit", ServiceName: "catalog"},
		{MessageType: "T, A", AssociationType: wconstant.AssociationReceptor, TargetName: "handler", ServiceName: "catalog"},
	})

	matches := r.Match("T, A, Version=2.0.0.0, Culture=neutral, PublicKeyToken=abc", wconstant.AssociationPerspective)

	assert.Len(t, matches, 1)
	assert.Equal(t, "inventory", matches[0].TargetName)
}

func TestRegistry_HasReceptor(t *testing.T) {
	r := NewRegistry([]wmodel.MessageAssociation{
		{MessageType: "Cmd, A", AssociationType: wconstant.AssociationReceptor, TargetName: "handler", ServiceName: "catalog"},
	})

	assert.True(t, r.HasReceptor("Cmd, A, Version=1.0.0.0, Culture=neutral, PublicKeyToken=abc"))
	assert.False(t, r.HasReceptor("Cmd, Other"))
}

// NewRegistry takes an immutable copy: mutating the input slice after
// construction must never change match results (spec §9's "late mutation is
// a bug" guidance, exercised from the Go side).
func TestRegistry_ImmutableAgainstInputMutation(t *testing.T) {
	associations := []wmodel.MessageAssociation{
		{MessageType: "T, A", AssociationType: wconstant.AssociationPerspective, TargetName: "inventory", ServiceName: "catalog"},
	}

	r := NewRegistry(associations)
	associations[0].TargetName = "mutated"

	matches := r.Match("T, A", wconstant.AssociationPerspective)
	assert.Len(t, matches, 1)
	assert.Equal(t, "inventory", matches[0].TargetName)
}
