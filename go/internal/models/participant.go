package models

// Participant is a player resolved from the external roster at reminder
// time. Participants are read-through only and never persisted here.
type Participant struct {
	UserID      string `json:"user_id"`
	DeviceToken string `json:"device_token"`
	DisplayName string `json:"display_name"`
}
