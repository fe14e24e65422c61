package user

import "github.com/sideseat/sideseat-core/pkg/ulid"

// ProfileVisibility controls who can see a user's public profile.
type ProfileVisibility string

const (
	ProfileVisibilityPublic  ProfileVisibility = "public"
	ProfileVisibilityPrivate ProfileVisibility = "private"
	ProfileVisibilityOrgOnly ProfileVisibility = "org_only"
)

// PublicProfile represents the subset of profile data visible to other users.
type PublicProfile struct {
	UserID    ulid.ULID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
}

// ProfileCompleteness reports how much of a profile has been filled in.
type ProfileCompleteness struct {
	OverallScore    int            `json:"overall_score"`
	Sections        map[string]int `json:"sections"`
	CompletedFields []string       `json:"completed_fields"`
	MissingFields   []string       `json:"missing_fields"`
	Recommendations []string       `json:"recommendations"`
}

// ProfileValidationError describes a single profile field validation failure.
type ProfileValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ProfileValidation is the result of validating a profile's required fields.
type ProfileValidation struct {
	IsValid bool                     `json:"is_valid"`
	Errors  []ProfileValidationError `json:"errors"`
}

// NotificationPreferences is a focused view over UserPreferences for notification channels.
type NotificationPreferences struct {
	EmailNotifications      bool `json:"email_notifications"`
	PushNotifications       bool `json:"push_notifications"`
	SMSNotifications        bool `json:"sms_notifications"`
	MarketingEmails         bool `json:"marketing_emails"`
	SecurityAlerts          bool `json:"security_alerts"`
	ProductUpdates          bool `json:"product_updates"`
	WeeklyDigest            bool `json:"weekly_digest"`
	InvitationNotifications bool `json:"invitation_notifications"`
}

// UpdateNotificationPreferencesRequest represents a partial update to notification preferences.
type UpdateNotificationPreferencesRequest struct {
	EmailNotifications *bool `json:"email_notifications,omitempty"`
	PushNotifications  *bool `json:"push_notifications,omitempty"`
	MarketingEmails    *bool `json:"marketing_emails,omitempty"`
	SecurityAlerts     *bool `json:"security_alerts,omitempty"`
	WeeklyDigest       *bool `json:"weekly_digest,omitempty"`
}

// ThemePreferences controls display and locale settings.
type ThemePreferences struct {
	Theme          string `json:"theme"`
	PrimaryColor   string `json:"primary_color"`
	Language       string `json:"language"`
	TimeFormat     string `json:"time_format"`
	DateFormat     string `json:"date_format"`
	Timezone       string `json:"timezone"`
	CompactMode    bool   `json:"compact_mode"`
	ShowAnimations bool   `json:"show_animations"`
	HighContrast   bool   `json:"high_contrast"`
}

// UpdateThemePreferencesRequest represents a partial update to theme preferences.
type UpdateThemePreferencesRequest struct {
	Theme    *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark auto"`
	Language *string `json:"language,omitempty" validate:"omitempty,len=2"`
	Timezone *string `json:"timezone,omitempty"`
}

// PrivacyPreferences controls visibility and consent settings.
type PrivacyPreferences struct {
	ProfileVisibility      ProfileVisibility `json:"profile_visibility"`
	ShowEmail              bool              `json:"show_email"`
	ShowLastSeen           bool              `json:"show_last_seen"`
	AllowDirectMessages    bool              `json:"allow_direct_messages"`
	DataProcessingConsent  bool              `json:"data_processing_consent"`
	AnalyticsConsent       bool              `json:"analytics_consent"`
	ThirdPartyIntegrations bool              `json:"third_party_integrations"`
}

// UpdatePrivacyPreferencesRequest represents a partial update to privacy preferences.
type UpdatePrivacyPreferencesRequest struct {
	ProfileVisibility      *ProfileVisibility `json:"profile_visibility,omitempty"`
	ShowEmail              *bool              `json:"show_email,omitempty"`
	ShowLastSeen           *bool              `json:"show_last_seen,omitempty"`
	AllowDirectMessages    *bool              `json:"allow_direct_messages,omitempty"`
	AnalyticsConsent       *bool              `json:"analytics_consent,omitempty"`
	ThirdPartyIntegrations *bool              `json:"third_party_integrations,omitempty"`
}
