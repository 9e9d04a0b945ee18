package notify

import (
	"context"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// ResolvePreferences selects the role-scoped toggles from the flat settings.
// Any role other than owner uses the manager toggles.
func ResolvePreferences(role model.Role, s model.NotificationSettings) model.Preferences {
	if role == model.RoleOwner {
		return model.Preferences{Sound: s.OwnerSound, Popup: s.OwnerPopup, System: s.OwnerSystem}
	}
	return model.Preferences{Sound: s.ManagerSound, Popup: s.ManagerPopup, System: s.ManagerSystem}
}

// PreferenceSource yields the toggles in effect for the board.
type PreferenceSource interface {
	Preferences(ctx context.Context) (model.Preferences, error)
}

// SettingsReader loads restaurant-wide notification settings.
type SettingsReader interface {
	NotificationSettings(ctx context.Context) (*model.NotificationSettings, error)
}

// StationPreferences resolves settings for the role the board runs as.
type StationPreferences struct {
	settings SettingsReader
	role     model.Role
}

// NewStationPreferences binds a settings reader to a station role.
func NewStationPreferences(settings SettingsReader, role model.Role) *StationPreferences {
	return &StationPreferences{settings: settings, role: role}
}

func (p *StationPreferences) Preferences(ctx context.Context) (model.Preferences, error) {
	s, err := p.settings.NotificationSettings(ctx)
	if err != nil {
		return model.Preferences{}, err
	}
	return ResolvePreferences(p.role, *s), nil
}

// StaticPreferences always returns the same toggles.
type StaticPreferences model.Preferences

func (p StaticPreferences) Preferences(context.Context) (model.Preferences, error) {
	return model.Preferences(p), nil
}
