package session

// StudentRole enumerates portal roles as returned by the backend.
const (
	RoleUser        = "USER"
	RoleStaff       = "STAFF"
	RolePresident   = "PRESIDENT"
	RoleSystemAdmin = "SYSTEM_ADMIN"
)

// User is the authenticated student's profile as the client sees it.
type User struct {
	StudentID     int64  `json:"studentId,omitempty"`
	StudentName   string `json:"studentName"`
	StudentNumber string `json:"studentNumber"`
	StudentTier   string `json:"studentTier,omitempty"`
	Role          string `json:"role,omitempty"`
}

// IsStaff reports whether the user may perform admin-panel actions.
func (u User) IsStaff() bool {
	switch u.Role {
	case RoleStaff, RolePresident, RoleSystemAdmin:
		return true
	}
	return false
}
