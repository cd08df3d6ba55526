package models

const UserTypeDriver = "driver"

// DriverProfile is the truck document data plus its identity, stored in the session
type DriverProfile struct {
	TruckIdentity
	Email      string         `json:"email,omitempty"`
	DriverName string         `json:"driverName,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Session is the locally persisted driver session
type Session struct {
	UID           string        `json:"uid"`
	Email         string        `json:"email"`
	EmailVerified bool          `json:"emailVerified"`
	UserType      string        `json:"userType"`
	Profile       DriverProfile `json:"profile"`
	LastLogin     string        `json:"lastLogin"`
}

// Valid reports whether the session can be trusted. Partial sessions never are.
func (s *Session) Valid() bool {
	if s == nil || s.UID == "" {
		return false
	}
	if s.UserType != UserTypeDriver {
		return false
	}
	return s.Profile.TruckIdentity.Complete()
}

// Principal is an authenticated user as reported by the auth provider
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"-"`
}
