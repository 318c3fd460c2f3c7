// Package query implements the two declarative filters of the C4 query
// engine: queryConcepts and queryRelationships. Every criterion field is
// optional; when absent it matches all. Predicates within one query are
// AND-combined. Results preserve the entity store's insertion order.
package query

import (
	"strings"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// ConceptCriteria filters concepts. A zero-value field means "unspecified".
type ConceptCriteria struct {
	NameSubstring string
	Metadata      kernel.Metadata
	Creator       string

	hasCreator bool
}

// WithCreator marks Creator as present; needed because "" is a valid,
// if unusual, principal id and we must distinguish "absent" from "empty".
func (c ConceptCriteria) WithCreator(principal string) ConceptCriteria {
	c.Creator = principal
	c.hasCreator = true
	return c
}

// Concepts filters concepts by substring-containment on name (byte-wise,
// case-sensitive, exact substring via strings.Contains — not the
// source's hand-rolled scanner, which skips overlapping matches when a
// candidate fails), metadata AND-match, and optional exact
// creator match.
func Concepts(all []*kernel.Concept, criteria ConceptCriteria) []*kernel.Concept {
	var out []*kernel.Concept
	for _, c := range all {
		if criteria.NameSubstring != "" && !strings.Contains(c.Name, criteria.NameSubstring) {
			continue
		}
		if criteria.hasCreator && c.Creator.PrincipalID != criteria.Creator {
			continue
		}
		if !metadataMatches(c.Metadata, criteria.Metadata) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RelationshipCriteria filters relationships.
type RelationshipCriteria struct {
	From, To, Type *kernel.ID
	Creator        *string
	MinProbability *fraction.Fraction
	MaxProbability *fraction.Fraction
	Metadata       kernel.Metadata
}

// Relationships filters relationships by optional exact from/to/type/
// creator, optional probability range (inclusive, via C1 comparison), and
// metadata AND-match.
func Relationships(all []*kernel.Relationship, criteria RelationshipCriteria) []*kernel.Relationship {
	var out []*kernel.Relationship
	for _, r := range all {
		if criteria.From != nil && r.SourceID != *criteria.From {
			continue
		}
		if criteria.To != nil && r.TargetID != *criteria.To {
			continue
		}
		if criteria.Type != nil && r.TypeID != *criteria.Type {
			continue
		}
		if criteria.Creator != nil && r.Creator.PrincipalID != *criteria.Creator {
			continue
		}
		if criteria.MinProbability != nil && fraction.LT(r.Probability, *criteria.MinProbability) {
			continue
		}
		if criteria.MaxProbability != nil && fraction.GT(r.Probability, *criteria.MaxProbability) {
			continue
		}
		if !metadataMatches(r.Metadata, criteria.Metadata) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// metadataMatches reports whether every (k, v) pair in want is present as
// an exact pair in have. An empty want matches everything.
func metadataMatches(have, want kernel.Metadata) bool {
	for _, w := range want {
		if !have.HasPair(w.Key, w.Value) {
			return false
		}
	}
	return true
}

// PageEnvelope wraps a result list with pagination fields that are
// populated but always describe a single page
// containing every match — true pagination is a deliberate future
// extension.
type PageEnvelope[T any] struct {
	Items      []T
	TotalCount int
	Page       int
	PageSize   int
	HasMore    bool
}

// Paginate wraps items in a single-page envelope.
func Paginate[T any](items []T) PageEnvelope[T] {
	return PageEnvelope[T]{
		Items:      items,
		TotalCount: len(items),
		Page:       1,
		PageSize:   len(items),
		HasMore:    false,
	}
}
