package models

// Caller carries the identity of the user invoking a core operation:
// role plus trainer uid, threaded explicitly through every service call
// instead of being read from ambient session state.
type Caller struct {
	UID      string
	Username string
	Role     string
}

// IsAdmin reports whether the caller may invoke admin-only operations.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
