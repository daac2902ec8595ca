package portaltest

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ampm-club/portal/internal/student"
)

func (s *Server) handleCurrentStudent(c *gin.Context) {
	rec := currentStudent(c)
	c.JSON(http.StatusOK, profileOf(rec))
}

func (s *Server) handleTiers(c *gin.Context) {
	s.mu.Lock()
	entries := make([]student.RankEntry, 0, len(s.students))
	for _, rec := range s.students {
		if !rec.Approved {
			continue
		}
		entries = append(entries, student.RankEntry{
			StudentID:     rec.ID,
			StudentName:   rec.Name,
			StudentNumber: rec.Number,
			Tier:          rec.TierLevel,
			SolvedCount:   rec.SolvedCount,
			Rating:        rec.Rating,
		})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rating > entries[j].Rating })
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleIssueCode(c *gin.Context) {
	rec := currentStudent(c)
	code := "ampm-" + uuid.NewString()[:8]

	s.mu.Lock()
	rec.VerificationCode = code
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type solvedInfoRequest struct {
	SolvedAcNickname string `json:"solvedAcNickname" binding:"required,max=64"`
}

// handleVerifySolved links a solved.ac handle. The real backend checks the
// profile bio for the issued code; here issuing one is enough.
func (s *Server) handleVerifySolved(c *gin.Context) {
	rec := currentStudent(c)

	var req solvedInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if rec.VerificationCode == "" {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"message": "issue a verification code first"})
		return
	}
	rec.SolvedAcNickname = req.SolvedAcNickname
	if rec.Tier == "" {
		rec.Tier = fmt.Sprintf("%s %d", student.TierName(rec.TierLevel), rec.TierLevel%5+1)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, profileOf(rec))
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

func (s *Server) handleChangePassword(c *gin.Context) {
	rec := currentStudent(c)

	var req passwordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "current password does not match"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to change password"})
		return
	}

	s.mu.Lock()
	rec.PasswordHash = string(hash)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}
