package exhibit

import "time"

// Exhibit is one showcase entry. Description is markdown; image references
// inside it are file IDs resolved through presigned download URLs.
type Exhibit struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExhibitURL  string    `json:"exhibitUrl"`
	CreatedBy   int64     `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// CreateRequest posts a new exhibit.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ExhibitURL  string `json:"exhibitUrl"`
}

// UploadTicket is the backend's answer to an upload request: the file ID to
// embed in markdown and the presigned URL to PUT the payload to.
type UploadTicket struct {
	FileID       string `json:"fileId"`
	PresignedURL string `json:"presignedUrl"`
}
