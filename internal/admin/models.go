package admin

import "time"

// Signup application states.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// SignupApplication is one pending (or settled) membership request.
type SignupApplication struct {
	ID            int64     `json:"id"`
	StudentName   string    `json:"studentName"`
	StudentNumber string    `json:"studentNumber"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Student is one row of the member management table.
type Student struct {
	ID            int64  `json:"id"`
	StudentName   string `json:"studentName"`
	StudentNumber string `json:"studentNumber"`
	Role          string `json:"role"`
}

// StudentList is the backend's envelope for the member listing.
type StudentList struct {
	Students []Student `json:"students"`
}

// ApplicationSelection carries the application IDs for a bulk approve or
// reject.
type ApplicationSelection struct {
	ApplicationIDs []int64 `json:"applicationIds"`
}

// RoleChange updates a student's role.
type RoleChange struct {
	Role string `json:"role"`
}
