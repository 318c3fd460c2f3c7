package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
)

// Store is the in-memory entity store (C2). It owns the three entity
// mappings and their identifier counters. The kernel runs
// single-threaded with cooperative suspension; on a threaded host a single
// writer lock around mutation suffices, with read-mostly access over a
// consistent snapshot. That is exactly what Store.mu provides.
type Store struct {
	mu sync.RWMutex

	concepts      map[ID]*Concept
	relationships map[ID]*Relationship
	types         map[ID]*RelationshipType

	// Insertion order is the store's tie-break for every listing operation
	// Maps don't preserve order, so each mapping above is
	// paired with an ordered id slice.
	conceptOrder      []ID
	relationshipOrder []ID
	typeOrder         []ID

	nextConceptID      ID
	nextRelationshipID ID
	nextTypeID         ID
}

// NewStore returns an empty store with all three counters starting at zero.
func NewStore() *Store {
	return &Store{
		concepts:      make(map[ID]*Concept),
		relationships: make(map[ID]*Relationship),
		types:         make(map[ID]*RelationshipType),
	}
}

// CreateConcept allocates a fresh id and writes a new concept. name must be
// non-empty.
func (s *Store) CreateConcept(name, description string, metadata Metadata, creator Creator, now time.Time) (*Concept, error) {
	if name == "" {
		return nil, apperrors.ValidationError{Code: "EMPTY_NAME", Message: "concept name must not be empty", Field: "name"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Concept{
		ID:          s.nextConceptID,
		Name:        name,
		Description: description,
		Creator:     creator,
		CreatedAt:   now,
		ModifiedAt:  now,
		Metadata:    metadata.Clone(),
	}
	s.concepts[c.ID] = c
	s.conceptOrder = append(s.conceptOrder, c.ID)
	s.nextConceptID++
	return c.Clone(), nil
}

// GetConcept returns a deep snapshot of the concept with the given id.
func (s *Store) GetConcept(id ID) (*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.concepts[id]
	if !ok {
		return nil, fmt.Errorf("concept %d: %w", id, apperrors.ErrNotFound)
	}
	return c.Clone(), nil
}

// ListConcepts returns deep snapshots of every concept in insertion order.
func (s *Store) ListConcepts() []*Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Concept, 0, len(s.conceptOrder))
	for _, id := range s.conceptOrder {
		out = append(out, s.concepts[id].Clone())
	}
	return out
}

// ConceptPatch describes the optional fields of an update. A nil pointer
// means "leave unchanged".
type ConceptPatch struct {
	Name        *string
	Description *string
	Metadata    *Metadata
}

// UpdateConcept applies patch to the concept, succeeding only when caller
// matches the record's original creator principal.
func (s *Store) UpdateConcept(id ID, patch ConceptPatch, caller string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.concepts[id]
	if !ok {
		return fmt.Errorf("concept %d: %w", id, apperrors.ErrNotFound)
	}
	if c.Creator.PrincipalID != caller {
		return apperrors.PermissionDeniedError{Operation: "modify", Resource: "concept", Reason: "caller is not the creator"}
	}
	if patch.Name == nil && patch.Description == nil && patch.Metadata == nil {
		return apperrors.InvalidOperationError{Message: "update requested with no fields changed"}
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return apperrors.ValidationError{Code: "EMPTY_NAME", Message: "concept name must not be empty", Field: "name"}
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Metadata != nil {
		c.Metadata = patch.Metadata.Clone()
	}
	c.ModifiedAt = now
	return nil
}

// CreateRelationshipType allocates a fresh id and writes a new relationship
// type, rejecting name collisions among active types and the
// reflexive+irreflexive invariant violation.
func (s *Store) CreateRelationshipType(name, description string, logical LogicalProperties, inheritance InheritanceProperties, rules []ValidationRule, metadata Metadata) (*RelationshipType, error) {
	if logical.Reflexive && logical.Irreflexive {
		return nil, apperrors.ValidationError{Code: "REFLEXIVE_IRREFLEXIVE_CONFLICT", Message: "a relationship type cannot be both reflexive and irreflexive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTypeNameExistsLocked(name) {
		return nil, fmt.Errorf("relationship type %q: %w", name, apperrors.ErrAlreadyExists)
	}

	t := &RelationshipType{
		ID:          s.nextTypeID,
		Name:        name,
		Description: description,
		Metadata:    metadata.Clone(),
		Logical:     logical,
		Inheritance: inheritance,
		Validation:  append([]ValidationRule(nil), rules...),
	}
	s.types[t.ID] = t
	s.typeOrder = append(s.typeOrder, t.ID)
	s.nextTypeID++
	return t.Clone(), nil
}

func (s *Store) activeTypeNameExistsLocked(name string) bool {
	for _, id := range s.typeOrder {
		t := s.types[id]
		if t.IsActive() && t.Name == name {
			return true
		}
	}
	return false
}

// GetRelationshipType returns a deep snapshot of the type with the given id.
func (s *Store) GetRelationshipType(id ID) (*RelationshipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.types[id]
	if !ok {
		return nil, fmt.Errorf("relationship type %d: %w", id, apperrors.ErrNotFound)
	}
	return t.Clone(), nil
}

// ListRelationshipTypes returns deep snapshots of every type in insertion
// order.
func (s *Store) ListRelationshipTypes() []*RelationshipType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RelationshipType, 0, len(s.typeOrder))
	for _, id := range s.typeOrder {
		out = append(out, s.types[id].Clone())
	}
	return out
}

// DeprecateRelationshipType transitions a type from Active to Deprecated. A
// deprecated type is retained so existing relationships remain
// interpretable; new assertions against it must fail (enforced by C3, not
// here).
func (s *Store) DeprecateRelationshipType(id ID, replacedBy *ID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.types[id]
	if !ok {
		return fmt.Errorf("relationship type %d: %w", id, apperrors.ErrNotFound)
	}
	if replacedBy != nil {
		if _, ok := s.types[*replacedBy]; !ok {
			return fmt.Errorf("replacement type %d: %w", *replacedBy, apperrors.ErrNotFound)
		}
	}
	t.Status = RelationshipTypeStatus{Deprecated: true, ReplacedBy: replacedBy, Reason: reason}
	return nil
}

// ConceptExists reports whether id resolves to a stored concept, without
// paying for a full clone.
func (s *Store) ConceptExists(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.concepts[id]
	return ok
}

// OutgoingOfType returns deep copies of the relationships where concept
// `from` is the source and the type matches, used by C3's UniqueTarget check and by
// C5's traversal. Read-locked.
func (s *Store) OutgoingOfType(from, typeID ID) []*Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.concepts[from]
	if !ok {
		return nil
	}
	out := make([]*Relationship, 0, len(c.Outgoing))
	for _, rid := range c.Outgoing {
		r := s.relationships[rid]
		if r != nil && r.TypeID == typeID {
			out = append(out, r.Clone())
		}
	}
	return out
}

// IncomingOfType returns the live relationships where concept `to` is the
// target and the type matches, in insertion order. Used by C5's symmetric
// derivation (a stored edge (A,B) implies the reverse fact when the type is
// symmetric).
func (s *Store) IncomingOfType(to, typeID ID) []*Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.concepts[to]
	if !ok {
		return nil
	}
	out := make([]*Relationship, 0, len(c.Incoming))
	for _, rid := range c.Incoming {
		r := s.relationships[rid]
		if r != nil && r.TypeID == typeID {
			out = append(out, r.Clone())
		}
	}
	return out
}

// WriteRelationship allocates an id for a pre-validated candidate and
// atomically writes it plus the adjacency-cache updates. Validation (C3)
// must have already run against a snapshot of this store; WriteRelationship
// re-checks that the referenced concepts and type still exist under the
// write lock and rolls back (no id is consumed, no partial write is left
// behind) if they don't, so that invariant 2 (adjacency symmetry) never
// observes an intermediate state.
func (s *Store) WriteRelationship(sourceID, targetID, typeID ID, probability, confidence fraction.Fraction, creator Creator, metadata Metadata) (*Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.concepts[sourceID]
	if !ok {
		return nil, fmt.Errorf("source concept %d: %w", sourceID, apperrors.ErrNotFound)
	}
	target, ok := s.concepts[targetID]
	if !ok {
		return nil, fmt.Errorf("target concept %d: %w", targetID, apperrors.ErrNotFound)
	}
	if _, ok := s.types[typeID]; !ok {
		return nil, fmt.Errorf("relationship type %d: %w", typeID, apperrors.ErrNotFound)
	}
	if !probability.Valid() {
		return nil, apperrors.ValidationError{Code: "INVALID_PROBABILITY", Message: "probability must be in [0,1]", Field: "probability"}
	}
	if !confidence.Valid() {
		return nil, apperrors.InvalidConfidenceError{Value: confidence.String(), Reason: "confidence must be in [0,1]"}
	}

	r := &Relationship{
		ID:          s.nextRelationshipID,
		SourceID:    sourceID,
		TargetID:    targetID,
		TypeID:      typeID,
		Probability: probability,
		Confidence:  confidence,
		Creator:     creator,
		Metadata:    metadata.Clone(),
	}

	// Everything from here is infallible bookkeeping: no step can fail, so
	// the id allocation and the adjacency updates happen as one atomic
	// critical section, preserving invariant 2.
	s.relationships[r.ID] = r
	s.relationshipOrder = append(s.relationshipOrder, r.ID)
	source.Outgoing = append(source.Outgoing, r.ID)
	target.Incoming = append(target.Incoming, r.ID)
	s.nextRelationshipID++

	return r.Clone(), nil
}

// GetRelationship returns a deep snapshot of the relationship with the
// given id.
func (s *Store) GetRelationship(id ID) (*Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, fmt.Errorf("relationship %d: %w", id, apperrors.ErrNotFound)
	}
	return r.Clone(), nil
}

// ListRelationships returns deep snapshots of every relationship in
// insertion order.
func (s *Store) ListRelationships() []*Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Relationship, 0, len(s.relationshipOrder))
	for _, id := range s.relationshipOrder {
		out = append(out, s.relationships[id].Clone())
	}
	return out
}

// RelationshipPatch describes the optional fields of a relationship update.
type RelationshipPatch struct {
	Probability *fraction.Fraction
	Metadata    *Metadata
}

// UpdateRelationship applies patch, succeeding only when caller matches the
// record's original creator principal.
func (s *Store) UpdateRelationship(id ID, patch RelationshipPatch, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.relationships[id]
	if !ok {
		return fmt.Errorf("relationship %d: %w", id, apperrors.ErrNotFound)
	}
	if r.Creator.PrincipalID != caller {
		return apperrors.PermissionDeniedError{Operation: "modify", Resource: "relationship", Reason: "caller is not the creator"}
	}
	if patch.Probability == nil && patch.Metadata == nil {
		return apperrors.InvalidOperationError{Message: "update requested with no fields changed"}
	}
	if patch.Probability != nil {
		if !patch.Probability.Valid() {
			return apperrors.ValidationError{Code: "INVALID_PROBABILITY", Message: "probability must be in [0,1]", Field: "probability"}
		}
		r.Probability = *patch.Probability
	}
	if patch.Metadata != nil {
		r.Metadata = patch.Metadata.Clone()
	}
	return nil
}

// Snapshot returns the three record slices, in insertion order, plus the three counters, for
// use by the persistence bridge (C6). The returned records are deep copies.
func (s *Store) Snapshot() ([]*Concept, []*Relationship, []*RelationshipType, ID, ID, ID) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	concepts := make([]*Concept, 0, len(s.conceptOrder))
	for _, id := range s.conceptOrder {
		concepts = append(concepts, s.concepts[id].Clone())
	}
	relationships := make([]*Relationship, 0, len(s.relationshipOrder))
	for _, id := range s.relationshipOrder {
		relationships = append(relationships, s.relationships[id].Clone())
	}
	types := make([]*RelationshipType, 0, len(s.typeOrder))
	for _, id := range s.typeOrder {
		types = append(types, s.types[id].Clone())
	}
	return concepts, relationships, types, s.nextConceptID, s.nextRelationshipID, s.nextTypeID
}

// Restore rebuilds the store's mappings from flat ordered sequences,
// typically produced by a prior Snapshot call that was serialized across a
// lifecycle boundary by the persistence bridge. Restore overwrites any
// existing in-memory state; it is meant to run once at startup before any
// other Store method is called. Each concept's Outgoing/Incoming lists are
// rebuilt from the relationships, in relationship order.
func (s *Store) Restore(concepts []*Concept, relationships []*Relationship, types []*RelationshipType, nextConceptID, nextRelationshipID, nextTypeID ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.concepts = make(map[ID]*Concept, len(concepts))
	s.conceptOrder = make([]ID, 0, len(concepts))
	for _, c := range concepts {
		clone := c.Clone()
		clone.Outgoing = nil
		clone.Incoming = nil
		s.concepts[c.ID] = clone
		s.conceptOrder = append(s.conceptOrder, c.ID)
	}

	s.relationships = make(map[ID]*Relationship, len(relationships))
	s.relationshipOrder = make([]ID, 0, len(relationships))
	for _, r := range relationships {
		s.relationships[r.ID] = r.Clone()
		s.relationshipOrder = append(s.relationshipOrder, r.ID)
		if source, ok := s.concepts[r.SourceID]; ok {
			source.Outgoing = append(source.Outgoing, r.ID)
		}
		if target, ok := s.concepts[r.TargetID]; ok {
			target.Incoming = append(target.Incoming, r.ID)
		}
	}

	s.types = make(map[ID]*RelationshipType, len(types))
	s.typeOrder = make([]ID, 0, len(types))
	for _, t := range types {
		s.types[t.ID] = t.Clone()
		s.typeOrder = append(s.typeOrder, t.ID)
	}

	s.nextConceptID = nextConceptID
	s.nextRelationshipID = nextRelationshipID
	s.nextTypeID = nextTypeID
}
