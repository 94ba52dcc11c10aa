package models

// SessionMode is the active role on this device
type SessionMode string

const (
	ModeNone  SessionMode = ""
	ModeAdmin SessionMode = "admin"
	ModeUser  SessionMode = "user"
)

// Session is the process-wide identity. IsAdmin and IsUser are derived from
// Mode so they can never disagree with it.
type Session struct {
	Mode      SessionMode `json:"mode"`
	AdminName string      `json:"adminName,omitempty"`
	UserName  string      `json:"userName,omitempty"`
}

// IsAdmin reports whether the admin mode is active
func (s Session) IsAdmin() bool { return s.Mode == ModeAdmin }

// IsUser reports whether the end-user mode is active
func (s Session) IsUser() bool { return s.Mode == ModeUser }

// DisplayName returns the name of whichever mode is active
func (s Session) DisplayName() string {
	switch s.Mode {
	case ModeAdmin:
		return s.AdminName
	case ModeUser:
		return s.UserName
	default:
		return ""
	}
}

// LoginResult is returned by login operations instead of an error so callers
// can render an inline message.
type LoginResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
