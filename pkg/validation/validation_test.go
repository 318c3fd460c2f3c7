package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/validation"
)

type fakeLookup struct {
	existing []*kernel.Relationship
}

func (f fakeLookup) OutgoingOfType(from, typeID kernel.ID) []*kernel.Relationship {
	var out []*kernel.Relationship
	for _, r := range f.existing {
		if r.SourceID == from && r.TypeID == typeID {
			out = append(out, r)
		}
	}
	return out
}

func isA() *kernel.RelationshipType {
	return &kernel.RelationshipType{
		ID:   kernel.TypeIsA,
		Name: "IS-A",
		Logical: kernel.LogicalProperties{
			Transitive:  true,
			Irreflexive: true,
		},
	}
}

func TestDeprecatedTypeRejected(t *testing.T) {
	typ := isA()
	typ.Status = kernel.RelationshipTypeStatus{Deprecated: true, Reason: "obsolete"}

	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 2, TypeID: typ.ID}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "DEPRECATED_TYPE", ve.Code)
}

// TestIrreflexiveViolation covers an IS-A self-reference, which an
// irreflexive type must reject.
func TestIrreflexiveViolation(t *testing.T) {
	typ := isA()
	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 1, TypeID: typ.ID}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "IRREFLEXIVE_VIOLATION", ve.Code)
}

func TestReflexiveAllowsSelfReference(t *testing.T) {
	typ := &kernel.RelationshipType{Name: "SIMILAR-TO", Logical: kernel.LogicalProperties{Reflexive: true}}
	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 1, TypeID: typ.ID}, typ)
	assert.NoError(t, err)
}

func TestRequiredMetadata(t *testing.T) {
	typ := &kernel.RelationshipType{
		Name:       "EMPLOYED-BY",
		Validation: []kernel.ValidationRule{{Kind: kernel.RuleRequiredMetadata, Keys: []string{"role"}}},
	}

	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 2, TypeID: typ.ID}, typ)
	require.Error(t, err)

	withMeta := validation.Candidate{SourceID: 1, TargetID: 2, TypeID: typ.ID, Metadata: kernel.Metadata{{Key: "role", Value: "engineer"}}}
	assert.NoError(t, validation.Validate(fakeLookup{}, withMeta, typ))
}

func TestNoSelfReferenceRule(t *testing.T) {
	typ := &kernel.RelationshipType{
		Name:       "SIBLING",
		Validation: []kernel.ValidationRule{{Kind: kernel.RuleNoSelfReference}},
	}
	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 1, TypeID: typ.ID}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "SELF_REFERENCE", ve.Code)
}

func TestUniqueTargetRule(t *testing.T) {
	typ := &kernel.RelationshipType{
		ID:         5,
		Name:       "MANAGES",
		Validation: []kernel.ValidationRule{{Kind: kernel.RuleUniqueTarget}},
	}
	lookup := fakeLookup{existing: []*kernel.Relationship{{SourceID: 1, TargetID: 2, TypeID: 5}}}

	err := validation.Validate(lookup, validation.Candidate{SourceID: 1, TargetID: 2, TypeID: 5}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "UNIQUE_TARGET_VIOLATION", ve.Code)

	// Different target is fine.
	assert.NoError(t, validation.Validate(lookup, validation.Candidate{SourceID: 1, TargetID: 3, TypeID: 5}, typ))
}

func TestCustomRuleAlwaysFails(t *testing.T) {
	typ := &kernel.RelationshipType{
		Name: "CUSTOM",
		Validation: []kernel.ValidationRule{{
			Kind:              kernel.RuleCustom,
			CustomName:        "business-hours",
			CustomDescription: "not yet implemented",
			CustomErrorCode:   "CUSTOM_RULE_NOT_IMPLEMENTED",
		}},
	}
	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 2, TypeID: typ.ID}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "CUSTOM_RULE_NOT_IMPLEMENTED", ve.Code)
}

func TestRulesRunInOrderAndStopAtFirstFailure(t *testing.T) {
	typ := &kernel.RelationshipType{
		Name: "ORDERED",
		Validation: []kernel.ValidationRule{
			{Kind: kernel.RuleNoSelfReference},
			{Kind: kernel.RuleRequiredMetadata, Keys: []string{"never-checked"}},
		},
	}
	// Self-reference fails first; required-metadata is never evaluated.
	err := validation.Validate(fakeLookup{}, validation.Candidate{SourceID: 1, TargetID: 1, TypeID: typ.ID}, typ)
	require.Error(t, err)
	var ve apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "SELF_REFERENCE", ve.Code)
}
