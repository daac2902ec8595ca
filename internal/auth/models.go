package auth

// Credentials is the login request body.
type Credentials struct {
	StudentNumber   string `json:"studentNumber"`
	StudentPassword string `json:"studentPassword"`
}

// Registration is the signup request body. New accounts stay pending until
// an admin approves them.
type Registration struct {
	StudentName     string `json:"studentName"`
	StudentNumber   string `json:"studentNumber"`
	StudentPassword string `json:"studentPassword"`
}

// PasswordChange is the body of the password modification request.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// SolvedAccount links a solved.ac handle to the student account.
type SolvedAccount struct {
	SolvedAcNickname string `json:"solvedAcNickname"`
}
