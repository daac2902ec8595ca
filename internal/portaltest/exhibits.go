package portaltest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ampm-club/portal/internal/exhibit"
)

const maxUploadSize = 10 << 20

type exhibitCreateRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
	ExhibitURL  string `json:"exhibitUrl"`
}

func (s *Server) handleExhibitList(c *gin.Context) {
	s.mu.Lock()
	out := make([]exhibit.Exhibit, 0, len(s.exhibits))
	for _, rec := range s.exhibits {
		out = append(out, exhibit.Exhibit{
			ID:          rec.ID,
			Title:       rec.Title,
			Description: rec.Description,
			ExhibitURL:  rec.ExhibitURL,
			CreatedBy:   rec.CreatedBy,
			CreatedAt:   rec.CreatedAt,
		})
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleExhibitCreate(c *gin.Context) {
	rec := currentStudent(c)

	var req exhibitCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.exhibitSeq++
	created := exhibitRecord{
		ID:          s.exhibitSeq,
		Title:       req.Title,
		Description: req.Description,
		ExhibitURL:  req.ExhibitURL,
		CreatedBy:   rec.ID,
		CreatedAt:   s.nowFunc(),
	}
	s.exhibits = append(s.exhibits, created)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, exhibit.Exhibit{
		ID:          created.ID,
		Title:       created.Title,
		Description: created.Description,
		ExhibitURL:  created.ExhibitURL,
		CreatedBy:   created.CreatedBy,
		CreatedAt:   created.CreatedAt,
	})
}

// handleUploadTicket mints a file ID and a presigned URL for a direct PUT
// to the simulated storage.
func (s *Server) handleUploadTicket(c *gin.Context) {
	fileID := "exhibits/images/" + uuid.NewString()

	presigned, err := s.presign(fileID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exhibit.UploadTicket{FileID: fileID, PresignedURL: presigned})
}

func (s *Server) handleDownloadTicket(c *gin.Context) {
	fileID := c.Query("fileId")
	if fileID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "fileId is required"})
		return
	}

	s.mu.Lock()
	_, exists := s.files[fileID]
	s.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such file"})
		return
	}

	presigned, err := s.presign(fileID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"presignedUrl": presigned})
}

// presign builds a signed storage URL for the file key. The signature is an
// HMAC over the key; good enough for a dev backend, checked on every
// storage access.
func (s *Server) presign(key string) (string, error) {
	s.mu.Lock()
	base := s.baseURL
	s.mu.Unlock()
	if base == "" {
		return "", fmt.Errorf("base URL not configured")
	}
	query := url.Values{"signature": {s.sign(key)}}
	return strings.TrimRight(base, "/") + "/storage/" + key + "?" + query.Encode(), nil
}

func (s *Server) sign(key string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.AccessSecret))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) storageKey(c *gin.Context) (string, bool) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing key"})
		return "", false
	}
	signature := c.Query("signature")
	if !hmac.Equal([]byte(signature), []byte(s.sign(key))) {
		c.JSON(http.StatusForbidden, gin.H{"message": "bad signature"})
		return "", false
	}
	return key, true
}

func (s *Server) handleStoragePut(c *gin.Context) {
	key, ok := s.storageKey(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read payload"})
		return
	}

	s.mu.Lock()
	s.files[key] = data
	s.mu.Unlock()
	c.Status(http.StatusOK)
}

func (s *Server) handleStorageGet(c *gin.Context) {
	key, ok := s.storageKey(c)
	if !ok {
		return
	}

	s.mu.Lock()
	data, exists := s.files[key]
	s.mu.Unlock()
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such object"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
