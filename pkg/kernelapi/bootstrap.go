package kernelapi

import (
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// bootstrapType describes one of the four well-known relationship types the
// store reserves ids 0-3 for.
type bootstrapType struct {
	id          kernel.ID
	name        string
	logical     kernel.LogicalProperties
	inheritable bool
}

var bootstrapTypes = []bootstrapType{
	{id: kernel.TypeIsA, name: "IS-A", logical: kernel.LogicalProperties{Transitive: true, Irreflexive: true}, inheritable: true},
	{id: kernel.TypeHasA, name: "HAS-A", logical: kernel.LogicalProperties{Irreflexive: true}, inheritable: true},
	{id: kernel.TypePartOf, name: "PART-OF", logical: kernel.LogicalProperties{Transitive: true, Irreflexive: true}, inheritable: false},
	{id: kernel.TypePropertyOf, name: "PROPERTY-OF", logical: kernel.LogicalProperties{Irreflexive: true}, inheritable: true},
}

// Bootstrap registers the four well-known relationship types (IS-A, HAS-A,
// PART-OF, PROPERTY-OF) if the store is empty of types, and verifies their
// identifiers and names if it is not (the persistence bridge may have
// already restored them). A name collision with an already-registered
// bootstrap type is "already initialized", not an error; any other
// mismatch is a startup-time configuration bug and is returned as a
// SystemError.
func (f *Facade) Bootstrap() error {
	for _, bt := range bootstrapTypes {
		existing, err := f.store.GetRelationshipType(bt.id)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.SystemError{Message: fmt.Sprintf("bootstrap lookup of type %d", bt.id), Cause: err}
			}
			created, err := f.store.CreateRelationshipType(bt.name, "", bt.logical, kernel.InheritanceProperties{Inheritable: bt.inheritable}, nil, nil)
			if err != nil {
				return apperrors.SystemError{Message: fmt.Sprintf("bootstrap creation of type %q", bt.name), Cause: err}
			}
			if created.ID != bt.id {
				return apperrors.SystemError{Message: fmt.Sprintf("bootstrap type %q allocated id %d, expected %d", bt.name, created.ID, bt.id)}
			}
			continue
		}
		if existing.Name != bt.name {
			return apperrors.SystemError{Message: fmt.Sprintf("reserved type id %d holds name %q, expected %q", bt.id, existing.Name, bt.name)}
		}
	}
	return nil
}
