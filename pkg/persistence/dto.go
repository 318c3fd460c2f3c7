package persistence

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// fractionDTO carries a fraction's numerator/denominator as decimal strings
// so a big.Int never loses precision crossing the JSONB boundary.
type fractionDTO struct {
	Num string `json:"num"`
	Den string `json:"den"`
}

func toFractionDTO(f fraction.Fraction) fractionDTO {
	return fractionDTO{Num: f.Num.String(), Den: f.Den.String()}
}

func (d fractionDTO) toFraction() (fraction.Fraction, error) {
	num, ok := new(big.Int).SetString(d.Num, 10)
	if !ok {
		return fraction.Fraction{}, fmt.Errorf("invalid fraction numerator %q", d.Num)
	}
	den, ok := new(big.Int).SetString(d.Den, 10)
	if !ok {
		return fraction.Fraction{}, fmt.Errorf("invalid fraction denominator %q", d.Den)
	}
	return fraction.MakeBig(num, den)
}

type creatorDTO struct {
	PrincipalID string `json:"principal_id"`
	TimestampNS int64  `json:"timestamp_ns"`
}

func toCreatorDTO(c kernel.Creator) creatorDTO {
	return creatorDTO{PrincipalID: c.PrincipalID, TimestampNS: c.Timestamp.UnixNano()}
}

func (d creatorDTO) toCreator() kernel.Creator {
	return kernel.Creator{PrincipalID: d.PrincipalID, Timestamp: nsToTime(d.TimestampNS)}
}

type metadataEntryDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func toMetadataDTO(m kernel.Metadata) []metadataEntryDTO {
	out := make([]metadataEntryDTO, len(m))
	for i, e := range m {
		out[i] = metadataEntryDTO{Key: e.Key, Value: e.Value}
	}
	return out
}

func fromMetadataDTO(entries []metadataEntryDTO) kernel.Metadata {
	if len(entries) == 0 {
		return nil
	}
	out := make(kernel.Metadata, len(entries))
	for i, e := range entries {
		out[i] = kernel.MetadataEntry{Key: e.Key, Value: e.Value}
	}
	return out
}

// conceptRow is the flattened representation of a kernel.Concept stored in
// kernel_concepts. seq preserves insertion order across a save/load cycle,
// since map iteration inside the store is not itself ordered.
type conceptRow struct {
	ID          int64
	Seq         int64
	Name        string
	Description string
	Creator     []byte
	CreatedAtNS int64
	ModifiedAtNS int64
	Metadata    []byte
}

func conceptToRow(c *kernel.Concept, seq int64) (conceptRow, error) {
	creator, err := json.Marshal(toCreatorDTO(c.Creator))
	if err != nil {
		return conceptRow{}, fmt.Errorf("marshal concept %d creator: %w", c.ID, err)
	}
	metadata, err := json.Marshal(toMetadataDTO(c.Metadata))
	if err != nil {
		return conceptRow{}, fmt.Errorf("marshal concept %d metadata: %w", c.ID, err)
	}
	return conceptRow{
		ID:           int64(c.ID),
		Seq:          seq,
		Name:         c.Name,
		Description:  c.Description,
		Creator:      creator,
		CreatedAtNS:  c.CreatedAt.UnixNano(),
		ModifiedAtNS: c.ModifiedAt.UnixNano(),
		Metadata:     metadata,
	}, nil
}

func rowToConcept(r conceptRow) (*kernel.Concept, error) {
	var creator creatorDTO
	if err := json.Unmarshal(r.Creator, &creator); err != nil {
		return nil, fmt.Errorf("unmarshal concept %d creator: %w", r.ID, err)
	}
	var metadata []metadataEntryDTO
	if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal concept %d metadata: %w", r.ID, err)
	}
	return &kernel.Concept{
		ID:          kernel.ID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Creator:     creator.toCreator(),
		CreatedAt:   nsToTime(r.CreatedAtNS),
		ModifiedAt:  nsToTime(r.ModifiedAtNS),
		Metadata:    fromMetadataDTO(metadata),
	}, nil
}

// relationshipRow is the flattened representation of a kernel.Relationship
// stored in kernel_relationships.
type relationshipRow struct {
	ID          int64
	Seq         int64
	SourceID    int64
	TargetID    int64
	TypeID      int64
	Probability []byte
	Confidence  []byte
	Creator     []byte
	Metadata    []byte
}

func relationshipToRow(r *kernel.Relationship, seq int64) (relationshipRow, error) {
	probability, err := json.Marshal(toFractionDTO(r.Probability))
	if err != nil {
		return relationshipRow{}, fmt.Errorf("marshal relationship %d probability: %w", r.ID, err)
	}
	confidence, err := json.Marshal(toFractionDTO(r.Confidence))
	if err != nil {
		return relationshipRow{}, fmt.Errorf("marshal relationship %d confidence: %w", r.ID, err)
	}
	creator, err := json.Marshal(toCreatorDTO(r.Creator))
	if err != nil {
		return relationshipRow{}, fmt.Errorf("marshal relationship %d creator: %w", r.ID, err)
	}
	metadata, err := json.Marshal(toMetadataDTO(r.Metadata))
	if err != nil {
		return relationshipRow{}, fmt.Errorf("marshal relationship %d metadata: %w", r.ID, err)
	}
	return relationshipRow{
		ID:          int64(r.ID),
		Seq:         seq,
		SourceID:    int64(r.SourceID),
		TargetID:    int64(r.TargetID),
		TypeID:      int64(r.TypeID),
		Probability: probability,
		Confidence:  confidence,
		Creator:     creator,
		Metadata:    metadata,
	}, nil
}

func rowToRelationship(r relationshipRow) (*kernel.Relationship, error) {
	var probDTO, confDTO fractionDTO
	if err := json.Unmarshal(r.Probability, &probDTO); err != nil {
		return nil, fmt.Errorf("unmarshal relationship %d probability: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Confidence, &confDTO); err != nil {
		return nil, fmt.Errorf("unmarshal relationship %d confidence: %w", r.ID, err)
	}
	probability, err := probDTO.toFraction()
	if err != nil {
		return nil, fmt.Errorf("relationship %d probability: %w", r.ID, err)
	}
	confidence, err := confDTO.toFraction()
	if err != nil {
		return nil, fmt.Errorf("relationship %d confidence: %w", r.ID, err)
	}
	var creator creatorDTO
	if err := json.Unmarshal(r.Creator, &creator); err != nil {
		return nil, fmt.Errorf("unmarshal relationship %d creator: %w", r.ID, err)
	}
	var metadata []metadataEntryDTO
	if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal relationship %d metadata: %w", r.ID, err)
	}
	return &kernel.Relationship{
		ID:          kernel.ID(r.ID),
		SourceID:    kernel.ID(r.SourceID),
		TargetID:    kernel.ID(r.TargetID),
		TypeID:      kernel.ID(r.TypeID),
		Probability: probability,
		Confidence:  confidence,
		Creator:     creator.toCreator(),
		Metadata:    fromMetadataDTO(metadata),
	}, nil
}

type validationRuleDTO struct {
	Kind              int      `json:"kind"`
	Keys              []string `json:"keys,omitempty"`
	CustomName        string   `json:"custom_name,omitempty"`
	CustomDescription string   `json:"custom_description,omitempty"`
	CustomErrorCode   string   `json:"custom_error_code,omitempty"`
}

type statusDTO struct {
	Deprecated bool   `json:"deprecated"`
	ReplacedBy *int64 `json:"replaced_by,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// relationshipTypeRow is the flattened representation of a
// kernel.RelationshipType stored in kernel_relationship_types.
type relationshipTypeRow struct {
	ID          int64
	Seq         int64
	Name        string
	Description string
	Metadata    []byte
	Logical     []byte
	Inheritance []byte
	Validation  []byte
	Status      []byte
}

func relationshipTypeToRow(t *kernel.RelationshipType, seq int64) (relationshipTypeRow, error) {
	metadata, err := json.Marshal(toMetadataDTO(t.Metadata))
	if err != nil {
		return relationshipTypeRow{}, fmt.Errorf("marshal type %d metadata: %w", t.ID, err)
	}
	logical, err := json.Marshal(t.Logical)
	if err != nil {
		return relationshipTypeRow{}, fmt.Errorf("marshal type %d logical properties: %w", t.ID, err)
	}
	inheritance, err := json.Marshal(t.Inheritance)
	if err != nil {
		return relationshipTypeRow{}, fmt.Errorf("marshal type %d inheritance properties: %w", t.ID, err)
	}
	rules := make([]validationRuleDTO, len(t.Validation))
	for i, rule := range t.Validation {
		rules[i] = validationRuleDTO{
			Kind:              int(rule.Kind),
			Keys:              rule.Keys,
			CustomName:        rule.CustomName,
			CustomDescription: rule.CustomDescription,
			CustomErrorCode:   rule.CustomErrorCode,
		}
	}
	validation, err := json.Marshal(rules)
	if err != nil {
		return relationshipTypeRow{}, fmt.Errorf("marshal type %d validation rules: %w", t.ID, err)
	}
	var replacedBy *int64
	if t.Status.ReplacedBy != nil {
		v := int64(*t.Status.ReplacedBy)
		replacedBy = &v
	}
	status, err := json.Marshal(statusDTO{
		Deprecated: t.Status.Deprecated,
		ReplacedBy: replacedBy,
		Reason:     t.Status.Reason,
	})
	if err != nil {
		return relationshipTypeRow{}, fmt.Errorf("marshal type %d status: %w", t.ID, err)
	}
	return relationshipTypeRow{
		ID:          int64(t.ID),
		Seq:         seq,
		Name:        t.Name,
		Description: t.Description,
		Metadata:    metadata,
		Logical:     logical,
		Inheritance: inheritance,
		Validation:  validation,
		Status:      status,
	}, nil
}

func rowToRelationshipType(r relationshipTypeRow) (*kernel.RelationshipType, error) {
	var metadata []metadataEntryDTO
	if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal type %d metadata: %w", r.ID, err)
	}
	var logical kernel.LogicalProperties
	if err := json.Unmarshal(r.Logical, &logical); err != nil {
		return nil, fmt.Errorf("unmarshal type %d logical properties: %w", r.ID, err)
	}
	var inheritance kernel.InheritanceProperties
	if err := json.Unmarshal(r.Inheritance, &inheritance); err != nil {
		return nil, fmt.Errorf("unmarshal type %d inheritance properties: %w", r.ID, err)
	}
	var ruleDTOs []validationRuleDTO
	if err := json.Unmarshal(r.Validation, &ruleDTOs); err != nil {
		return nil, fmt.Errorf("unmarshal type %d validation rules: %w", r.ID, err)
	}
	rules := make([]kernel.ValidationRule, len(ruleDTOs))
	for i, d := range ruleDTOs {
		rules[i] = kernel.ValidationRule{
			Kind:              kernel.ValidationRuleKind(d.Kind),
			Keys:              d.Keys,
			CustomName:        d.CustomName,
			CustomDescription: d.CustomDescription,
			CustomErrorCode:   d.CustomErrorCode,
		}
	}
	var status statusDTO
	if err := json.Unmarshal(r.Status, &status); err != nil {
		return nil, fmt.Errorf("unmarshal type %d status: %w", r.ID, err)
	}
	var replacedBy *kernel.ID
	if status.ReplacedBy != nil {
		v := kernel.ID(*status.ReplacedBy)
		replacedBy = &v
	}
	return &kernel.RelationshipType{
		ID:          kernel.ID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Metadata:    fromMetadataDTO(metadata),
		Logical:     logical,
		Inheritance: inheritance,
		Validation:  rules,
		Status: kernel.RelationshipTypeStatus{
			Deprecated: status.Deprecated,
			ReplacedBy: replacedBy,
			Reason:     status.Reason,
		},
	}, nil
}
