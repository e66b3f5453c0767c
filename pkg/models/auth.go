package models

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login. ExpiresAtUTC is an RFC 3339
// timestamp and may be empty.
type LoginResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	ExpiresAtUTC string `json:"expiresAtUtc"`
}

// Me is returned by GET /auth/me.
type Me struct {
	UserID   string `json:"userId" yaml:"userId"`
	Username string `json:"username" yaml:"username"`
	Role     string `json:"role" yaml:"role"`
}
