package event

import (
	"errors"
	"fmt"
)

// Payload is the typed body of one event kind.
type Payload interface {
	Kind() Kind
	Validate() error
	EventScope() Scope
}

// Scope carries the optional targeting fields shared by every payload.
type Scope struct {
	UnitIDs []int64 `json:"unitIds,omitempty"`
	UnitID  *int64  `json:"unitId,omitempty"`
	UserID  string  `json:"userId,omitempty"`
}

func (s Scope) EventScope() Scope { return s }

// Filter converts the scope fields into a delivery filter.
func (s Scope) Filter() Filter {
	f := Filter{UserID: s.UserID}
	if len(s.UnitIDs) > 0 {
		f.UnitIDs = append(f.UnitIDs, s.UnitIDs...)
	}
	if s.UnitID != nil {
		f.UnitIDs = append(f.UnitIDs, *s.UnitID)
	}
	return f
}

func (s Scope) validate() error {
	for _, id := range s.UnitIDs {
		if id <= 0 {
			return fmt.Errorf("unitIds: invalid unit id %d", id)
		}
	}
	if s.UnitID != nil && *s.UnitID <= 0 {
		return fmt.Errorf("unitId: invalid unit id %d", *s.UnitID)
	}
	return nil
}

type DashboardRefresh struct {
	Scope
	Reason string `json:"reason,omitempty"`
}

func (*DashboardRefresh) Kind() Kind { return KindDashboardRefresh }

func (p *DashboardRefresh) Validate() error { return p.Scope.validate() }

type DocumentUpdate struct {
	Scope
	DocumentID int64  `json:"documentId"`
	Action     string `json:"action"`
	Status     string `json:"status,omitempty"`
}

func (*DocumentUpdate) Kind() Kind { return KindDocumentUpdate }

func (p *DocumentUpdate) Validate() error {
	if p.DocumentID <= 0 {
		return errors.New("documentId is required")
	}
	if p.Action == "" {
		return errors.New("action is required")
	}
	return p.Scope.validate()
}

type ProtocolUpdate struct {
	Scope
	DocumentID     int64  `json:"documentId"`
	ProtocolNumber string `json:"protocolNumber"`
	ProtocolDate   string `json:"protocolDate,omitempty"`
}

func (*ProtocolUpdate) Kind() Kind { return KindProtocolUpdate }

func (p *ProtocolUpdate) Validate() error {
	if p.DocumentID <= 0 {
		return errors.New("documentId is required")
	}
	if p.ProtocolNumber == "" {
		return errors.New("protocolNumber is required")
	}
	return p.Scope.validate()
}

type BudgetUpdate struct {
	Scope
	MIS    string   `json:"mis"`
	Amount *float64 `json:"amount,omitempty"`
	Source string   `json:"source,omitempty"`
}

func (*BudgetUpdate) Kind() Kind { return KindBudgetUpdate }

func (p *BudgetUpdate) Validate() error {
	if p.MIS == "" {
		return errors.New("mis is required")
	}
	return p.Scope.validate()
}

type BeneficiaryUpdate struct {
	Scope
	BeneficiaryID int64  `json:"beneficiaryId"`
	Action        string `json:"action"`
}

func (*BeneficiaryUpdate) Kind() Kind { return KindBeneficiaryUpdate }

func (p *BeneficiaryUpdate) Validate() error {
	if p.BeneficiaryID <= 0 {
		return errors.New("beneficiaryId is required")
	}
	if p.Action == "" {
		return errors.New("action is required")
	}
	return p.Scope.validate()
}

type ProjectUpdate struct {
	Scope
	ProjectID int64  `json:"projectId,omitempty"`
	MIS       string `json:"mis,omitempty"`
	Action    string `json:"action,omitempty"`
}

func (*ProjectUpdate) Kind() Kind { return KindProjectUpdate }

func (p *ProjectUpdate) Validate() error {
	if p.ProjectID <= 0 && p.MIS == "" {
		return errors.New("projectId or mis is required")
	}
	return p.Scope.validate()
}

var severities = map[string]bool{"": true, "info": true, "success": true, "warning": true, "error": true}

type Notification struct {
	Scope
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

func (*Notification) Kind() Kind { return KindNotification }

func (p *Notification) Validate() error {
	if p.Message == "" {
		return errors.New("message is required")
	}
	if !severities[p.Severity] {
		return fmt.Errorf("severity: unsupported value %q", p.Severity)
	}
	return p.Scope.validate()
}

type AdminOperation struct {
	Scope
	Operation string `json:"operation"`
	ActorID   string `json:"actorId,omitempty"`
}

func (*AdminOperation) Kind() Kind { return KindAdminOperation }

func (p *AdminOperation) Validate() error {
	if p.Operation == "" {
		return errors.New("operation is required")
	}
	return p.Scope.validate()
}

type UserUpdate struct {
	Scope
	Action string `json:"action,omitempty"`
}

func (*UserUpdate) Kind() Kind { return KindUserUpdate }

func (p *UserUpdate) Validate() error { return p.Scope.validate() }

type ReferenceDataUpdate struct {
	Scope
	Table string `json:"table"`
}

func (*ReferenceDataUpdate) Kind() Kind { return KindReferenceDataUpdate }

func (p *ReferenceDataUpdate) Validate() error {
	if p.Table == "" {
		return errors.New("table is required")
	}
	return p.Scope.validate()
}

type RealtimeNotification struct {
	Scope
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

func (*RealtimeNotification) Kind() Kind { return KindRealtimeNotification }

func (p *RealtimeNotification) Validate() error {
	if p.Message == "" {
		return errors.New("message is required")
	}
	return p.Scope.validate()
}
