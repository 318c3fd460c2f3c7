// Package validation implements the relationship-type law enforcement
// pipeline (C3). It runs three stages in order against a candidate
// relationship and stops at the first failure: status check, declarative
// rules, logical laws.
package validation

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// Candidate is the not-yet-written relationship under validation.
type Candidate struct {
	SourceID kernel.ID
	TargetID kernel.ID
	TypeID   kernel.ID
	Metadata kernel.Metadata
}

// Lookup is the subset of store operations the validation engine needs to
// run UniqueTarget, kept as an interface so the engine doesn't depend on
// kernel.Store directly and can be driven by a snapshot in tests.
type Lookup interface {
	OutgoingOfType(from, typeID kernel.ID) []*kernel.Relationship
}

// Validate runs the full C3 pipeline against candidate and its declared
// type, returning the first failure encountered or nil if the candidate may
// proceed to the store write.
func Validate(lookup Lookup, candidate Candidate, relType *kernel.RelationshipType) error {
	if err := checkStatus(relType); err != nil {
		return err
	}
	if err := checkDeclarativeRules(lookup, candidate, relType); err != nil {
		return err
	}
	if err := checkLogicalLaws(candidate, relType); err != nil {
		return err
	}
	return nil
}

// checkStatus fails if the type has been deprecated; new assertions against
// a deprecated type are never permitted, though relationships asserted
// before deprecation remain interpretable.
func checkStatus(relType *kernel.RelationshipType) error {
	if !relType.Status.Deprecated {
		return nil
	}
	ve := apperrors.ValidationError{
		Code:    "DEPRECATED_TYPE",
		Message: fmt.Sprintf("relationship type %q is deprecated: %s", relType.Name, relType.Status.Reason),
		Field:   "type",
	}
	if relType.Status.ReplacedBy != nil {
		ve.Constraint = fmt.Sprintf("replaced_by=%d", *relType.Status.ReplacedBy)
	}
	return ve
}

// checkDeclarativeRules applies every rule in the type's Validation list, in
// order, stopping at the first failure.
func checkDeclarativeRules(lookup Lookup, candidate Candidate, relType *kernel.RelationshipType) error {
	for _, rule := range relType.Validation {
		switch rule.Kind {
		case kernel.RuleRequiredMetadata:
			for _, key := range rule.Keys {
				if !candidate.Metadata.Has(key) {
					return apperrors.ValidationError{
						Code:       "REQUIRED_METADATA_MISSING",
						Message:    fmt.Sprintf("relationship metadata must include key %q", key),
						Field:      "metadata",
						Constraint: key,
					}
				}
			}

		case kernel.RuleNoSelfReference:
			if candidate.SourceID == candidate.TargetID {
				return apperrors.ValidationError{
					Code:    "SELF_REFERENCE",
					Message: "relationship source and target must differ",
					Field:   "target",
				}
			}

		case kernel.RuleUniqueTarget:
			for _, existing := range lookup.OutgoingOfType(candidate.SourceID, candidate.TypeID) {
				if existing.TargetID == candidate.TargetID {
					return apperrors.ValidationError{
						Code:    "UNIQUE_TARGET_VIOLATION",
						Message: "a relationship of this type already exists from this source to this target",
						Field:   "target",
					}
				}
			}

		case kernel.RuleCustom:
			// CustomRule is a placeholder for user-defined extensions and
			// always fails, surfacing the rule's own code
			// and description so the caller can see what would need to be
			// implemented.
			return apperrors.ValidationError{
				Code:    rule.CustomErrorCode,
				Message: rule.CustomDescription,
				Field:   rule.CustomName,
			}
		}
	}
	return nil
}

// checkLogicalLaws enforces the structural laws derived from the type's
// boolean properties. Symmetric and transitive have
// no assertion-time effect; they drive inference only.
func checkLogicalLaws(candidate Candidate, relType *kernel.RelationshipType) error {
	if relType.Logical.Irreflexive && candidate.SourceID == candidate.TargetID {
		return apperrors.ValidationError{
			Code:    "IRREFLEXIVE_VIOLATION",
			Message: fmt.Sprintf("relationship type %q is irreflexive: source and target must differ", relType.Name),
			Field:   "target",
		}
	}
	// Reflexive with source == target is always permitted; no check needed.
	return nil
}
