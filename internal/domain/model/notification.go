package model

import "time"

// Role is a staff role.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// NotificationType distinguishes new orders from additions to existing ones.
type NotificationType string

const (
	NotificationNewOrder    NotificationType = "new"
	NotificationOrderUpdate NotificationType = "update"
)

// Preferences are the channel toggles in effect for one role.
type Preferences struct {
	Sound  bool `json:"sound"`
	Popup  bool `json:"popup"`
	System bool `json:"system"`
}

// NotificationSettings is the flat restaurant-wide settings object holding
// the owner and manager toggles.
type NotificationSettings struct {
	OwnerSound    bool `json:"ownerSound"`
	OwnerPopup    bool `json:"ownerPopup"`
	OwnerSystem   bool `json:"ownerSystem"`
	ManagerSound  bool `json:"managerSound"`
	ManagerPopup  bool `json:"managerPopup"`
	ManagerSystem bool `json:"managerSystem"`
}

// DefaultNotificationSettings enables every channel for every role.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		OwnerSound: true, OwnerPopup: true, OwnerSystem: true,
		ManagerSound: true, ManagerPopup: true, ManagerSystem: true,
	}
}

// Alert is the in-app popup payload. It stays open until acknowledged.
type Alert struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	Order          Order            `json:"order"`
	Items          []ItemLine       `json:"items"`
	CreatedAt      time.Time        `json:"createdAt"`
	AcknowledgedAt *time.Time       `json:"acknowledgedAt,omitempty"`
}

// PushMessage is a system-level notification handed to the push transport.
type PushMessage struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    PushData          `json:"data"`
	Options map[string]string `json:"options,omitempty"`
}

// PushData round-trips to the service when a push is tapped.
type PushData struct {
	OrderID string           `json:"orderId"`
	Type    NotificationType `json:"type"`
}
