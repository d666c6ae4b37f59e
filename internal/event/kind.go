// Package event defines the closed set of domain events the gateway distributes,
// their payload schemas, the scope filter used for targeted delivery and the
// wire envelope sent to clients.
package event

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindDashboardRefresh     Kind = "dashboard_refresh"
	KindDocumentUpdate       Kind = "document_update"
	KindProtocolUpdate       Kind = "protocol_update"
	KindBudgetUpdate         Kind = "budget_update"
	KindBeneficiaryUpdate    Kind = "beneficiary_update"
	KindProjectUpdate        Kind = "project_update"
	KindNotification         Kind = "notification"
	KindAdminOperation       Kind = "admin_operation"
	KindUserUpdate           Kind = "user_update"
	KindReferenceDataUpdate  Kind = "reference_data_update"
	KindRealtimeNotification Kind = "realtime_notification"
)

// Gateway-generated message types; never accepted from producers.
const (
	KindConnection Kind = "connection"
	KindPong       Kind = "pong"
)

var ErrUnknownKind = errors.New("event: unknown kind")

var factories = map[Kind]func() Payload{
	KindDashboardRefresh:     func() Payload { return &DashboardRefresh{} },
	KindDocumentUpdate:       func() Payload { return &DocumentUpdate{} },
	KindProtocolUpdate:       func() Payload { return &ProtocolUpdate{} },
	KindBudgetUpdate:         func() Payload { return &BudgetUpdate{} },
	KindBeneficiaryUpdate:    func() Payload { return &BeneficiaryUpdate{} },
	KindProjectUpdate:        func() Payload { return &ProjectUpdate{} },
	KindNotification:         func() Payload { return &Notification{} },
	KindAdminOperation:       func() Payload { return &AdminOperation{} },
	KindUserUpdate:           func() Payload { return &UserUpdate{} },
	KindReferenceDataUpdate:  func() Payload { return &ReferenceDataUpdate{} },
	KindRealtimeNotification: func() Payload { return &RealtimeNotification{} },
}

// ParseKind returns the Kind for s if it is a publishable kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := factories[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Kinds lists every publishable kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
