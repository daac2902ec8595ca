// Package portaltest is an in-process AM:PM portal backend used by the test
// suite and the dev-server command. It implements the full client-facing
// surface (auth, students, polls, exhibits, files) against in-memory state.
package portaltest

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/metrics"
	"github.com/ampm-club/portal/internal/poll"
)

type studentRecord struct {
	ID               int64
	Name             string
	Number           string
	PasswordHash     string
	Tier             string
	Role             string
	Approved         bool
	SolvedAcNickname string
	VerificationCode string
	TierLevel        int
	SolvedCount      int
	Rating           int
}

type refreshSession struct {
	StudentID int64
	ExpiresAt time.Time
}

type applicationRecord struct {
	ID            int64
	StudentNumber string
	Status        string
	CreatedAt     time.Time
}

type pollRecord struct {
	Meta  poll.Detail
	Votes map[int64][]int64 // studentID -> selected option IDs
}

type exhibitRecord struct {
	ID          int64
	Title       string
	Description string
	ExhibitURL  string
	CreatedBy   int64
	CreatedAt   time.Time
}

// Server holds the portal's in-memory state and its HTTP surface.
type Server struct {
	cfg     config.DevServerConfig
	logger  *slog.Logger
	nowFunc func() time.Time

	mu             sync.Mutex
	baseURL        string
	studentSeq     int64
	pollSeq        int64
	optionSeq      int64
	exhibitSeq     int64
	applicationSeq int64
	students       map[string]*studentRecord // keyed by student number
	sessions       map[string]refreshSession // refresh cookie value -> session
	applications   map[int64]*applicationRecord
	polls          map[int64]*pollRecord
	exhibits       []exhibitRecord
	files          map[string][]byte
}

// NewServer creates a portal backend with empty state.
func NewServer(cfg config.DevServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:          cfg,
		logger:       logger,
		nowFunc:      time.Now,
		students:     make(map[string]*studentRecord),
		sessions:     make(map[string]refreshSession),
		applications: make(map[int64]*applicationRecord),
		polls:        make(map[int64]*pollRecord),
		files:        make(map[string][]byte),
	}
}

// SetBaseURL sets the externally visible address used to mint presigned
// URLs. Tests set it to the httptest server URL; the dev-server command sets
// it from the listen address.
func (s *Server) SetBaseURL(url string) {
	s.mu.Lock()
	s.baseURL = url
	s.mu.Unlock()
}

// Seed registers an approved student and returns its record. Used by tests
// and by the dev-server's default account.
func (s *Server) Seed(name, number, password, role string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studentSeq++
	s.students[number] = &studentRecord{
		ID:           s.studentSeq,
		Name:         name,
		Number:       number,
		PasswordHash: string(hash),
		Role:         role,
		Approved:     true,
	}
	return s.studentSeq, nil
}

// SeedRank fills in leaderboard fields for an existing student.
func (s *Server) SeedRank(number string, tierLevel, solvedCount, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.students[number]; ok {
		rec.TierLevel = tierLevel
		rec.SolvedCount = solvedCount
		rec.Rating = rating
	}
}

// Router builds the gin engine with the full portal surface mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	s.registerHealthRoutes(router)
	metrics.Register(router, "/metrics")

	router.POST("/auth/login", s.handleLogin)
	router.POST("/auth/signup", s.handleSignup)
	router.POST("/auth/logout", s.handleLogout)
	router.POST("/api/auth/reissue", s.handleReissue)

	router.GET("/students/tiers", s.handleTiers)

	authed := router.Group("/")
	authed.Use(s.authMiddleware())
	{
		authed.GET("/students/me", s.handleCurrentStudent)
		authed.POST("/students/issue", s.handleIssueCode)
		authed.POST("/students/info", s.handleVerifySolved)
		authed.POST("/students/modify/password", s.handleChangePassword)

		authed.GET("/admin/signup-applications", s.handleApplicationList)
		authed.POST("/admin/signup-applications/approve", s.handleApplicationsApprove)
		authed.POST("/admin/signup-applications/reject", s.handleApplicationsReject)
		authed.GET("/admin/students", s.handleStudentList)
		authed.PATCH("/admin/students/:id/role", s.handleRoleChange)
		authed.DELETE("/admin/students/:id", s.handleStudentDelete)

		authed.POST("/polls", s.handlePollCreate)
		authed.POST("/polls/:id/votes", s.handlePollVote)
		authed.POST("/polls/:id/close", s.handlePollClose)
		authed.DELETE("/polls/:id", s.handlePollDelete)
		authed.GET("/polls/:id/results", s.handlePollResults)

		authed.GET("/exhibits", s.handleExhibitList)
		authed.POST("/exhibits", s.handleExhibitCreate)
		authed.GET("/files/upload", s.handleUploadTicket)
		authed.GET("/files/download", s.handleDownloadTicket)
	}

	// Listing and reading polls is public; vote state appears when a valid
	// token happens to be present.
	router.GET("/polls", s.handlePollList)
	router.GET("/polls/:id", s.handlePollGet)

	// Simulated object storage behind presigned URLs. File IDs contain
	// slashes, hence the wildcard.
	router.PUT("/storage/*key", s.handleStoragePut)
	router.GET("/storage/*key", s.handleStorageGet)

	return router
}

func (s *Server) registerHealthRoutes(router *gin.Engine) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		s.mu.Lock()
		students := len(s.students)
		polls := len(s.polls)
		s.mu.Unlock()
		c.JSON(200, gin.H{"status": "ok", "students": students, "polls": polls})
	})
}

func (s *Server) findStudentByID(id int64) *studentRecord {
	for _, rec := range s.students {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}
