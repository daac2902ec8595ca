package portaltest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ampm-club/portal/internal/admin"
	"github.com/ampm-club/portal/internal/session"
)

const refreshCookieName = "ampm_refresh"

type loginRequest struct {
	StudentNumber   string `json:"studentNumber" binding:"required"`
	StudentPassword string `json:"studentPassword" binding:"required"`
}

type signupRequest struct {
	StudentName     string `json:"studentName" binding:"required,max=64"`
	StudentNumber   string `json:"studentNumber" binding:"required,max=32"`
	StudentPassword string `json:"studentPassword" binding:"required,min=8,max=72"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	rec, ok := s.students[req.StudentNumber]
	s.mu.Unlock()
	if !ok || !rec.Approved {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.StudentPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	token, err := s.issueAccessToken(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
		return
	}
	s.issueRefreshCookie(c, rec.ID)

	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, profileOf(rec))
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.StudentPassword), s.cfg.BcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to register"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.students[req.StudentNumber]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "student number already registered"})
		return
	}
	s.studentSeq++
	s.students[req.StudentNumber] = &studentRecord{
		ID:           s.studentSeq,
		Name:         req.StudentName,
		Number:       req.StudentNumber,
		PasswordHash: string(hash),
		Role:         session.RoleUser,
		Approved:     false, // pending until a staff member approves
	}
	s.applicationSeq++
	s.applications[s.applicationSeq] = &applicationRecord{
		ID:            s.applicationSeq,
		StudentNumber: req.StudentNumber,
		Status:        admin.StatusPending,
		CreatedAt:     s.nowFunc(),
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registration pending approval"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie)
		s.mu.Unlock()
	}
	c.SetCookie(refreshCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// handleReissue rotates the refresh cookie and hands out a fresh access
// token in the Authorization response header, mirroring login.
func (s *Server) handleReissue(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "no session"})
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[cookie]
	if ok {
		delete(s.sessions, cookie)
	}
	s.mu.Unlock()
	if !ok || s.nowFunc().After(sess.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "session expired"})
		return
	}

	s.mu.Lock()
	rec := s.findStudentByID(sess.StudentID)
	s.mu.Unlock()
	if rec == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unknown student"})
		return
	}

	token, err := s.issueAccessToken(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
		return
	}
	s.issueRefreshCookie(c, rec.ID)

	c.Header("Authorization", "Bearer "+token)
	c.Status(http.StatusOK)
}

func (s *Server) issueAccessToken(rec *studentRecord) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub":           rec.ID,
		"studentName":   rec.Name,
		"studentNumber": rec.Number,
		"role":          rec.Role,
		"iat":           now.Unix(),
		"exp":           now.Add(s.cfg.AccessTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessSecret))
}

func (s *Server) issueRefreshCookie(c *gin.Context, studentID int64) {
	value := uuid.NewString()
	s.mu.Lock()
	s.sessions[value] = refreshSession{
		StudentID: studentID,
		ExpiresAt: s.nowFunc().Add(s.cfg.RefreshTokenTTL),
	}
	s.mu.Unlock()
	c.SetCookie(refreshCookieName, value, int(s.cfg.RefreshTokenTTL.Seconds()), "/", "", false, true)
}

// authMiddleware validates the bearer token and stores the student record
// in the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	return func(c *gin.Context) {
		rec := s.studentFromToken(parser, c.GetHeader("Authorization"))
		if rec == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}
		c.Set("student", rec)
		c.Next()
	}
}

// studentFromToken resolves a bearer header to a student record, nil when
// the header is missing or the token does not verify.
func (s *Server) studentFromToken(parser *jwt.Parser, header string) *studentRecord {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil
	}
	tokenString := strings.TrimSpace(header[7:])

	parsed, err := parser.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.AccessSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Time.Before(s.nowFunc()) {
		return nil
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findStudentByID(int64(sub))
}

func currentStudent(c *gin.Context) *studentRecord {
	value, exists := c.Get("student")
	if !exists {
		return nil
	}
	rec, _ := value.(*studentRecord)
	return rec
}

func isStaff(rec *studentRecord) bool {
	switch rec.Role {
	case session.RoleStaff, session.RolePresident, session.RoleSystemAdmin:
		return true
	}
	return false
}

func profileOf(rec *studentRecord) session.User {
	return session.User{
		StudentID:     rec.ID,
		StudentName:   rec.Name,
		StudentNumber: rec.Number,
		StudentTier:   rec.Tier,
		Role:          rec.Role,
	}
}
