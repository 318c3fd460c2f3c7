// Package kernelapi is the operations façade (C7): the coarse-grained
// command/query surface every caller goes through. It binds the
// authenticated caller identity to each mutation, asks the validation
// engine to approve a candidate relationship before it reaches the store,
// and records every mutation attempt to the audit trail.
package kernelapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/audit"
	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/inference"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/query"
	"github.com/ekaya-inc/ekaya-engine/pkg/validation"
)

// Facade is the C7 operations surface. It owns no state beyond a pointer to
// the C2 store; every mutation path validates through C3 before writing,
// and every inference query is delegated to C5.
type Facade struct {
	store   *kernel.Store
	auditor *audit.MutationAuditor
	logger  *zap.Logger
}

// New returns a Facade bound to store. logger is named "kernelapi" for the
// teacher's per-component child-logger convention.
func New(store *kernel.Store, auditor *audit.MutationAuditor, logger *zap.Logger) *Facade {
	return &Facade{store: store, auditor: auditor, logger: logger.Named("kernelapi")}
}

func callerFrom(ctx context.Context) (kernel.Creator, error) {
	principal, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return kernel.Creator{}, err
	}
	return kernel.Creator{PrincipalID: principal, Timestamp: time.Now()}, nil
}

// CreateConcept creates a concept, binding the caller's principal id as its
// creator.
func (f *Facade) CreateConcept(ctx context.Context, name, description string, metadata kernel.Metadata) (*kernel.Concept, error) {
	creator, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	c, err := f.store.CreateConcept(name, description, metadata, creator, time.Now())
	f.auditor.Record(ctx, audit.EventConceptCreated, "concept", idOf(c), err)
	return c, err
}

func idOf(c *kernel.Concept) kernel.ID {
	if c == nil {
		return 0
	}
	return c.ID
}

// GetConcept returns a single concept by id.
func (f *Facade) GetConcept(ctx context.Context, id kernel.ID) (*kernel.Concept, error) {
	return f.store.GetConcept(id)
}

// QueryConcepts filters the concept list by criteria and wraps the result
// in a pagination envelope.
func (f *Facade) QueryConcepts(ctx context.Context, criteria query.ConceptCriteria) query.PageEnvelope[*kernel.Concept] {
	matches := query.Concepts(f.store.ListConcepts(), criteria)
	return query.Paginate(matches)
}

// UpdateConcept applies patch, succeeding only when the caller is the
// concept's original creator.
func (f *Facade) UpdateConcept(ctx context.Context, id kernel.ID, patch kernel.ConceptPatch) error {
	principal, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return err
	}
	err = f.store.UpdateConcept(id, patch, principal, time.Now())
	eventType := audit.EventConceptUpdated
	if err != nil {
		eventType = audit.EventMutationDenied
	}
	f.auditor.Record(ctx, eventType, "concept", id, err)
	return err
}

// CreateRelationshipType registers a new relationship type.
func (f *Facade) CreateRelationshipType(ctx context.Context, name, description string, logical kernel.LogicalProperties, inheritance kernel.InheritanceProperties, rules []kernel.ValidationRule, metadata kernel.Metadata) (*kernel.RelationshipType, error) {
	t, err := f.store.CreateRelationshipType(name, description, logical, inheritance, rules, metadata)
	f.auditor.Record(ctx, audit.EventRelationshipTypeCreated, "relationship_type", idOfType(t), err)
	return t, err
}

func idOfType(t *kernel.RelationshipType) kernel.ID {
	if t == nil {
		return 0
	}
	return t.ID
}

// GetRelationshipType returns a single relationship type by id.
func (f *Facade) GetRelationshipType(ctx context.Context, id kernel.ID) (*kernel.RelationshipType, error) {
	return f.store.GetRelationshipType(id)
}

// DeprecateRelationshipType marks a type Deprecated; existing relationships
// of that type remain retrievable, but new assertions against it will fail
// validation.
func (f *Facade) DeprecateRelationshipType(ctx context.Context, id kernel.ID, replacedBy *kernel.ID, reason string) error {
	err := f.store.DeprecateRelationshipType(id, replacedBy, reason)
	f.auditor.Record(ctx, audit.EventRelationshipTypeDeprecated, "relationship_type", id, err)
	return err
}

// AssertRelationship is the full C7 assertion pipeline: look up the
// declared type, run C3 validation against a consistent read of the store,
// and only then write through C2. The validation read and the write happen
// under separate locks (read-then-write, not read-under-write-lock), so
// WriteRelationship re-checks referenced ids still exist and fails closed
// if they were removed between the two steps — an interleaving that cannot
// happen today since nothing deletes concepts or types, but the store
// contract does not rely on that.
func (f *Facade) AssertRelationship(ctx context.Context, sourceID, targetID, typeID kernel.ID, probability, confidence fraction.Fraction, metadata kernel.Metadata) (*kernel.Relationship, error) {
	creator, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	relType, err := f.store.GetRelationshipType(typeID)
	if err != nil {
		f.auditor.Record(ctx, audit.EventMutationDenied, "relationship", 0, err)
		return nil, err
	}

	candidate := validation.Candidate{SourceID: sourceID, TargetID: targetID, TypeID: typeID, Metadata: metadata}
	if err := validation.Validate(f.store, candidate, relType); err != nil {
		f.auditor.Record(ctx, audit.EventMutationDenied, "relationship", 0, err)
		return nil, err
	}

	r, err := f.store.WriteRelationship(sourceID, targetID, typeID, probability, confidence, creator, metadata)
	f.auditor.Record(ctx, audit.EventRelationshipAsserted, "relationship", idOfRelationship(r), err)
	return r, err
}

func idOfRelationship(r *kernel.Relationship) kernel.ID {
	if r == nil {
		return 0
	}
	return r.ID
}

// GetRelationship returns a single relationship by id.
func (f *Facade) GetRelationship(ctx context.Context, id kernel.ID) (*kernel.Relationship, error) {
	return f.store.GetRelationship(id)
}

// QueryRelationships filters the relationship list by criteria and wraps
// the result in a pagination envelope.
func (f *Facade) QueryRelationships(ctx context.Context, criteria query.RelationshipCriteria) query.PageEnvelope[*kernel.Relationship] {
	matches := query.Relationships(f.store.ListRelationships(), criteria)
	return query.Paginate(matches)
}

// UpdateRelationship applies patch, succeeding only when the caller is the
// relationship's original creator.
func (f *Facade) UpdateRelationship(ctx context.Context, id kernel.ID, patch kernel.RelationshipPatch) error {
	principal, err := auth.RequireUserIDFromContext(ctx)
	if err != nil {
		return err
	}
	err = f.store.UpdateRelationship(id, patch, principal)
	eventType := audit.EventRelationshipUpdated
	if err != nil {
		eventType = audit.EventMutationDenied
	}
	f.auditor.Record(ctx, eventType, "relationship", id, err)
	return err
}

// InferRelationships runs a bounded-depth inference query starting from
// q.StartingConcept, using the stored relationship type's logical
// properties to decide which derivation rules apply.
func (f *Facade) InferRelationships(ctx context.Context, q inference.Query) ([]inference.InferredRelationship, error) {
	typeID := kernel.TypeIsA
	if q.RelationshipType != nil {
		typeID = *q.RelationshipType
	}
	relType, err := f.store.GetRelationshipType(typeID)
	if err != nil {
		return nil, apperrors.ValidationError{Code: "UNKNOWN_RELATIONSHIP_TYPE", Message: "inference requires a registered relationship type", Field: "relationshipType"}
	}
	return inference.Infer(f.store, relType, q)
}
