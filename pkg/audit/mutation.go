// Package audit provides an audit trail for kernel mutations, logged in
// structured JSON for SIEM consumption.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// EventType categorizes an audited mutation.
type EventType string

const (
	EventConceptCreated           EventType = "concept_created"
	EventConceptUpdated           EventType = "concept_updated"
	EventRelationshipTypeCreated  EventType = "relationship_type_created"
	EventRelationshipTypeDeprecated EventType = "relationship_type_deprecated"
	EventRelationshipAsserted     EventType = "relationship_asserted"
	EventRelationshipUpdated      EventType = "relationship_updated"
	EventMutationDenied           EventType = "mutation_denied"
)

// MutationEvent records who did what, to which resource, and whether it
// succeeded, for SIEM ingestion and analysis.
type MutationEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    EventType `json:"event_type"`
	Principal    string    `json:"principal"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   kernel.ID `json:"resource_id,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Severity     string    `json:"severity"` // info, warning
}

// MutationAuditor logs kernel mutation events. Events are logged in
// structured JSON with a dedicated logger namespace for SIEM filtering.
type MutationAuditor struct {
	logger *zap.Logger
}

// NewMutationAuditor returns an auditor whose logger is named
// "mutation_audit" for SIEM filtering.
func NewMutationAuditor(logger *zap.Logger) *MutationAuditor {
	return &MutationAuditor{logger: logger.Named("mutation_audit")}
}

// Record logs a single mutation attempt. ctx supplies the caller's
// principal id when present; resourceID is zero-valued for events without
// a resolved resource (e.g. a denied mutation against a missing record).
func (a *MutationAuditor) Record(ctx context.Context, eventType EventType, resourceKind string, resourceID kernel.ID, err error) {
	principal := auth.PrincipalFromContext(ctx)

	severity := "info"
	errMsg := ""
	if err != nil {
		severity = "warning"
		errMsg = err.Error()
	}

	event := MutationEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Principal:    principal,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Success:      err == nil,
		ErrorMessage: errMsg,
		Severity:     severity,
	}

	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("principal", principal),
		zap.String("resource_kind", resourceKind),
		zap.Uint64("resource_id", uint64(resourceID)),
		zap.Bool("success", err == nil),
		zap.String("severity", severity),
	}

	if err != nil {
		a.logger.Warn(string(eventType), fields...)
		return
	}
	a.logger.Info(string(eventType), fields...)
}
