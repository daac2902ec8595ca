package poll

import "time"

// Poll lifecycle states.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Result visibility policies.
const (
	VisibilityAlways        = "ALWAYS"
	VisibilityAfterClose    = "AFTER_CLOSE"
	VisibilityAuthenticated = "AUTHENTICATED"
	VisibilityAdminOnly     = "ADMIN_ONLY"
)

// Summary is one row of the poll listing.
type Summary struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	MaxSelect      int       `json:"maxSelect"`
	Multiple       bool      `json:"multiple"`
	Anonymous      bool      `json:"anonymous"`
	AllowAddOption bool      `json:"allowAddOption"`
	AllowRevote    bool      `json:"allowRevote"`
	DeadlineAt     time.Time `json:"deadlineAt"`
	CreatedBy      int64     `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Page is the backend's paged envelope.
type Page struct {
	TotalElements    int       `json:"totalElements"`
	TotalPages       int       `json:"totalPages"`
	First            bool      `json:"first"`
	Last             bool      `json:"last"`
	Size             int       `json:"size"`
	Content          []Summary `json:"content"`
	Number           int       `json:"number"`
	NumberOfElements int       `json:"numberOfElements"`
	Empty            bool      `json:"empty"`
}

// Option is one votable choice.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Detail is the full poll view, including the caller's own vote state.
type Detail struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	MaxSelect           int        `json:"maxSelect"`
	Multiple            bool       `json:"multiple"`
	Anonymous           bool       `json:"anonymous"`
	AllowAddOption      bool       `json:"allowAddOption"`
	AllowRevote         bool       `json:"allowRevote"`
	ResultVisibility    string     `json:"resultVisibility"`
	DeadlineAt          time.Time  `json:"deadlineAt"`
	CreatedBy           int64      `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	ClosedAt            *time.Time `json:"closedAt,omitempty"`
	Open                bool       `json:"open"`
	Options             []Option   `json:"options"`
	Voted               bool       `json:"voted"`
	MySelectedOptionIDs []int64    `json:"mySelectedOptionIds"`
}

// CreateRequest creates a poll.
type CreateRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	MaxSelect        int       `json:"maxSelect"`
	Multiple         bool      `json:"multiple"`
	Anonymous        bool      `json:"anonymous"`
	AllowAddOption   bool      `json:"allowAddOption"`
	AllowRevote      bool      `json:"allowRevote"`
	ResultVisibility string    `json:"resultVisibility"`
	DeadlineAt       time.Time `json:"deadlineAt"`
	Options          []string  `json:"options"`
}

// VoteRequest casts a vote for one or more option IDs.
type VoteRequest struct {
	OptionIDs []int64 `json:"optionIds"`
}

// Voter identifies who picked an option; empty for anonymous polls.
type Voter struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
}

// ResultOption is one option's tally.
type ResultOption struct {
	ID     int64   `json:"id"`
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Voters []Voter `json:"voters"`
}

// Results is the tallied outcome, visibility permitting.
type Results struct {
	Poll                Detail         `json:"poll"`
	Options             []ResultOption `json:"options"`
	Voted               bool           `json:"voted"`
	MySelectedOptionIDs []int64        `json:"mySelectedOptionIds"`
}

// SearchParams filter the poll listing. Zero values are omitted from the
// query string.
type SearchParams struct {
	Query        string
	Status       string
	DeadlineFrom time.Time
	DeadlineTo   time.Time
}

// Pageable selects a page of results. Sort entries look like
// "createdAt,DESC".
type Pageable struct {
	Page int
	Size int
	Sort []string
}
