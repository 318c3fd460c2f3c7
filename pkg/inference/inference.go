// Package inference implements the bounded-depth, cycle-avoiding traversal
// (C5) that derives direct, symmetric, and transitive relationships with
// probability/confidence propagation.
package inference

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// ProvenanceKind tags how an InferredRelationship was derived.
type ProvenanceKind int

const (
	ProvenanceDirect ProvenanceKind = iota
	ProvenanceSymmetric
	ProvenanceTransitive
)

// Provenance is a closed tagged union identifying the originating edge(s) of
// a derived relationship. Exactly the fields relevant to Kind are set.
type Provenance struct {
	Kind ProvenanceKind

	// Direct / Symmetric
	OriginalID kernel.ID

	// Transitive
	First       kernel.ID
	Second      kernel.ID
	Probability fraction.Fraction
}

// InferredRelationship is a derived edge returned by inference queries. It
// is never written to the store — per SPEC_FULL.md's resolution of the
// "reused relationship id" source bug, derived results carry no identifier
// of their own, only a Provenance referencing real stored edges.
type InferredRelationship struct {
	From        kernel.ID
	To          kernel.ID
	TypeID      kernel.ID
	Probability fraction.Fraction
	Confidence  fraction.Fraction
	Creator     kernel.Creator
	Metadata    kernel.Metadata
	Provenance  Provenance
}

// Lookup is the subset of store access the inference engine needs: outgoing
// and incoming edges of a given type for a given concept, in insertion
// order, plus existence checks for the query's starting point. Incoming
// lookups are only used for symmetric types, where a stored edge (A,B)
// implies the reverse fact (B,A) and a query starting at B must be able to
// find it without a literal (B,A) edge having been asserted.
type Lookup interface {
	ConceptExists(id kernel.ID) bool
	OutgoingOfType(from, typeID kernel.ID) []*kernel.Relationship
	IncomingOfType(to, typeID kernel.ID) []*kernel.Relationship
}

// Query describes an inference request. RelationshipType, MaxDepth,
// MinProbability, and MinConfidence are optional at the wire boundary
// (zero-or-one-element sequences at the wire boundary); here they are plain Go
// pointers, nil meaning "unspecified".
type Query struct {
	StartingConcept  kernel.ID
	RelationshipType *kernel.ID
	MaxDepth         *int
	MinProbability   *fraction.Fraction
	MinConfidence    *fraction.Fraction
}

// visitedKey identifies a (start, target) pair already emitted, per the
// "first path wins" memoization policy.
type visitedKey struct {
	start, target kernel.ID
}

// Infer runs the C5 algorithm. It is a pure read: it returns (items, nil)
// even when items is empty. The only failure is a malformed query —
// StartingConcept not resolving to an existing concept — which returns
// apperrors.ErrNotFound.
func Infer(lookup Lookup, relType *kernel.RelationshipType, q Query) ([]InferredRelationship, error) {
	if !lookup.ConceptExists(q.StartingConcept) {
		return nil, fmt.Errorf("starting concept %d: %w", q.StartingConcept, apperrors.ErrNotFound)
	}

	typeID := kernel.TypeIsA
	if q.RelationshipType != nil {
		typeID = *q.RelationshipType
	}

	minProbability := fraction.Zero()
	if q.MinProbability != nil {
		minProbability = *q.MinProbability
	}
	minConfidence := fraction.Zero()
	if q.MinConfidence != nil {
		minConfidence = *q.MinConfidence
	}

	w := &walker{
		lookup:         lookup,
		typeID:         typeID,
		relType:        relType,
		minProbability: minProbability,
		minConfidence:  minConfidence,
		maxDepth:       q.MaxDepth,
		visited:        make(map[visitedKey]bool),
	}

	w.stepDirect(q.StartingConcept)
	return w.results, nil
}

type walker struct {
	lookup         Lookup
	typeID         kernel.ID
	relType        *kernel.RelationshipType
	minProbability fraction.Fraction
	minConfidence  fraction.Fraction
	maxDepth       *int // nil = unbounded

	visited map[visitedKey]bool
	results []InferredRelationship
}

func (w *walker) withinDepth(depth int) bool {
	return w.maxDepth == nil || depth <= *w.maxDepth
}

func (w *walker) markVisited(start, target kernel.ID) bool {
	key := visitedKey{start: start, target: target}
	if w.visited[key] {
		return false
	}
	w.visited[key] = true
	return true
}

// stepDirect enumerates edges with from = startingConcept and, for each,
// emits Direct and (for transitive types) kicks off transitive expansion.
// For symmetric types it additionally enumerates edges with to =
// startingConcept — a stored edge (A,B) on a symmetric type implies the
// reverse fact (B,A), so a query starting at B must surface it even though
// no literal (B,A) edge was ever asserted — and emits each as a Symmetric
// mirror.
func (w *walker) stepDirect(start kernel.ID) {
	for _, edge := range w.lookup.OutgoingOfType(start, w.typeID) {
		if !w.withinDepth(1) {
			continue
		}
		if !fraction.GE(edge.Probability, w.minProbability) || !fraction.GE(edge.Confidence, w.minConfidence) {
			continue
		}
		if !w.markVisited(start, edge.TargetID) {
			continue
		}
		w.results = append(w.results, InferredRelationship{
			From:        start,
			To:          edge.TargetID,
			TypeID:      w.typeID,
			Probability: edge.Probability,
			Confidence:  edge.Confidence,
			Creator:     edge.Creator,
			Metadata:    edge.Metadata,
			Provenance:  Provenance{Kind: ProvenanceDirect, OriginalID: edge.ID},
		})

		if w.relType.Logical.Transitive {
			w.expandTransitive(start, edge.ID, edge.TargetID, edge.Probability, edge.Confidence, 1)
		}
	}

	if !w.relType.Logical.Symmetric {
		return
	}
	for _, edge := range w.lookup.IncomingOfType(start, w.typeID) {
		if !w.withinDepth(1) {
			continue
		}
		if !fraction.GE(edge.Probability, w.minProbability) || !fraction.GE(edge.Confidence, w.minConfidence) {
			continue
		}
		if !w.markVisited(start, edge.SourceID) {
			continue
		}
		w.results = append(w.results, InferredRelationship{
			From:        start,
			To:          edge.SourceID,
			TypeID:      w.typeID,
			Probability: edge.Probability,
			Confidence:  edge.Confidence,
			Creator:     edge.Creator,
			Metadata:    edge.Metadata,
			Provenance:  Provenance{Kind: ProvenanceSymmetric, OriginalID: edge.ID},
		})
	}
}

// expandTransitive recursively walks outgoing edges of the same type
// starting from the root edge's target, accumulating probability via
// MULTIPLY and confidence via MinCombine. Because
// both combinators are non-increasing, once accumulated weight falls below
// a threshold no deeper path can recover it, so a failing threshold check
// still lets the walk continue probing other neighbors — pruning happens
// per-edge, not by aborting the whole branch, matching the "first path
// wins" ordering contract.
func (w *walker) expandTransitive(rootStart, rootEdgeID, currentTarget kernel.ID, accProbability, accConfidence fraction.Fraction, depth int) {
	for _, edge := range w.lookup.OutgoingOfType(currentTarget, w.typeID) {
		nextProbability := fraction.Multiply(accProbability, edge.Probability)
		nextConfidence := fraction.MinCombine(accConfidence, edge.Confidence)
		nextDepth := depth + 1

		if !w.withinDepth(nextDepth) {
			continue
		}
		if fraction.LT(nextProbability, w.minProbability) || fraction.LT(nextConfidence, w.minConfidence) {
			continue
		}
		if w.relType.Logical.Irreflexive && edge.TargetID == rootStart {
			continue
		}
		if !w.markVisited(rootStart, edge.TargetID) {
			continue
		}

		w.results = append(w.results, InferredRelationship{
			From:        rootStart,
			To:          edge.TargetID,
			TypeID:      w.typeID,
			Probability: nextProbability,
			Confidence:  nextConfidence,
			Creator:     edge.Creator,
			Metadata:    edge.Metadata,
			Provenance: Provenance{
				Kind:        ProvenanceTransitive,
				First:       rootEdgeID,
				Second:      edge.ID,
				Probability: nextProbability,
			},
		})

		w.expandTransitive(rootStart, rootEdgeID, edge.TargetID, nextProbability, nextConfidence, nextDepth)
	}
}
