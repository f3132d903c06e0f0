// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

// Package association holds the in-process mirror of the
// wh_message_associations table and the fuzzy type-matching rule (spec §3,
// P6). The authoritative auto-creation of perspective work happens inside
// process_work_batch (workhub.wh_fuzzy_type_match in SQL); this package
// gives the transport-consumer worker the same rule in Go so it can decide,
// without a round trip, whether a message has a local receptor registered.
package association

import (
	"regexp"
	"strings"

	"github.com/LerianStudio/workhub/pkg/wconstant"
	"github.com/LerianStudio/workhub/pkg/wmodel"
)

var tokenPattern = regexp.MustCompile(`(?i)^(Version|Culture|PublicKeyToken)=`)

// StripTypeTokens reduces an assembly-qualified type string down to
// "SimpleName, AssemblyName", discarding Version=/Culture=/PublicKeyToken=
// segments. A bare type name (no comma) is returned unchanged -- callers
// must never treat that as matchable on its own. Mirrors
// workhub.wh_strip_type_tokens exactly so Go and SQL never disagree.
func StripTypeTokens(typeString string) string {
	parts := strings.Split(typeString, ",")
	kept := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || tokenPattern.MatchString(part) {
			continue
		}

		kept = append(kept, part)
	}

	return strings.Join(kept, ", ")
}

// FuzzyTypeMatch reports whether a and b agree on both simple type name and
// assembly/package name once version/culture/public-key tokens are
// stripped. A type string carrying no assembly segment never matches
// anything -- the stricter contract spec.md §9's open question settles on.
func FuzzyTypeMatch(a, b string) bool {
	sa, sb := StripTypeTokens(a), StripTypeTokens(b)
	if !strings.Contains(sa, ",") || !strings.Contains(sb, ",") {
		return false
	}

	return sa == sb
}

// Registry is an immutable, startup-time-initialized lookup table from
// message type to the associations declared for it. Per spec §9's
// re-architecture guidance, late mutation after construction is a bug:
// the registry is handed to the dispatcher once, at wiring time.
type Registry struct {
	associations []wmodel.MessageAssociation
}

// NewRegistry builds an immutable registry from the full set of
// associations (typically loaded once from wh_message_associations at
// startup, or supplied by generated registration glue per spec §9).
func NewRegistry(associations []wmodel.MessageAssociation) *Registry {
	cp := make([]wmodel.MessageAssociation, len(associations))
	copy(cp, associations)

	return &Registry{associations: cp}
}

// Match returns every association of kind whose MessageType fuzzy-matches
// eventType.
func (r *Registry) Match(eventType string, kind wconstant.AssociationType) []wmodel.MessageAssociation {
	var matches []wmodel.MessageAssociation

	for _, a := range r.associations {
		if a.AssociationType != kind {
			continue
		}

		if FuzzyTypeMatch(a.MessageType, eventType) {
			matches = append(matches, a)
		}
	}

	return matches
}

// HasReceptor reports whether any local receptor is registered for
// commandType, the check the transport-consumer worker uses to decide
// between running a local receptor inline and buffering an inbox row. The
// dispatcher looks receptors up by exact type in its own receptor map.
func (r *Registry) HasReceptor(commandType string) bool {
	return len(r.Match(commandType, wconstant.AssociationReceptor)) > 0
}
