package portaltest

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ampm-club/portal/internal/admin"
)

// staffOnly guards the admin surface. Handlers call it first and bail when it
// reports false.
func (s *Server) staffOnly(c *gin.Context) bool {
	if !isStaff(currentStudent(c)) {
		c.JSON(http.StatusForbidden, gin.H{"message": "staff only"})
		return false
	}
	return true
}

func (s *Server) handleApplicationList(c *gin.Context) {
	if !s.staffOnly(c) {
		return
	}
	status := c.Query("status")

	s.mu.Lock()
	out := make([]admin.SignupApplication, 0, len(s.applications))
	for _, app := range s.applications {
		if status != "" && app.Status != status {
			continue
		}
		rec := s.students[app.StudentNumber]
		if rec == nil {
			continue
		}
		out = append(out, admin.SignupApplication{
			ID:            app.ID,
			StudentName:   rec.Name,
			StudentNumber: rec.Number,
			Status:        app.Status,
			CreatedAt:     app.CreatedAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

type applicationSelectionRequest struct {
	ApplicationIDs []int64 `json:"applicationIds" binding:"required,min=1"`
}

func (s *Server) handleApplicationsApprove(c *gin.Context) {
	s.settleApplications(c, admin.StatusApproved)
}

func (s *Server) handleApplicationsReject(c *gin.Context) {
	s.settleApplications(c, admin.StatusRejected)
}

// settleApplications moves the selected applications out of PENDING. Approval
// also activates the account so the student can sign in.
func (s *Server) settleApplications(c *gin.Context, status string) {
	if !s.staffOnly(c) {
		return
	}

	var req applicationSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range req.ApplicationIDs {
		app, ok := s.applications[id]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "no such application"})
			return
		}
		if app.Status != admin.StatusPending {
			c.JSON(http.StatusConflict, gin.H{"message": "application already settled"})
			return
		}
	}
	for _, id := range req.ApplicationIDs {
		app := s.applications[id]
		app.Status = status
		if status == admin.StatusApproved {
			if rec := s.students[app.StudentNumber]; rec != nil {
				rec.Approved = true
			}
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStudentList(c *gin.Context) {
	if !s.staffOnly(c) {
		return
	}

	s.mu.Lock()
	students := make([]admin.Student, 0, len(s.students))
	for _, rec := range s.students {
		if !rec.Approved {
			continue
		}
		students = append(students, admin.Student{
			ID:            rec.ID,
			StudentName:   rec.Name,
			StudentNumber: rec.Number,
			Role:          rec.Role,
		})
	}
	s.mu.Unlock()

	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	c.JSON(http.StatusOK, admin.StudentList{Students: students})
}

type roleChangeRequest struct {
	Role string `json:"role" binding:"required,oneof=USER STAFF PRESIDENT SYSTEM_ADMIN"`
}

func (s *Server) handleRoleChange(c *gin.Context) {
	if !s.staffOnly(c) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid student id"})
		return
	}

	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// An admin cannot change their own role.
	if currentStudent(c).ID == id {
		c.JSON(http.StatusConflict, gin.H{"message": "cannot change your own role"})
		return
	}

	s.mu.Lock()
	rec := s.findStudentByID(id)
	if rec != nil {
		rec.Role = req.Role
	}
	s.mu.Unlock()
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such student"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStudentDelete(c *gin.Context) {
	if !s.staffOnly(c) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid student id"})
		return
	}

	// An admin cannot delete their own account from the panel.
	if currentStudent(c).ID == id {
		c.JSON(http.StatusConflict, gin.H{"message": "cannot delete your own account"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findStudentByID(id)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such student"})
		return
	}
	delete(s.students, rec.Number)
	for appID, app := range s.applications {
		if app.StudentNumber == rec.Number {
			delete(s.applications, appID)
		}
	}
	for cookie, sess := range s.sessions {
		if sess.StudentID == rec.ID {
			delete(s.sessions, cookie)
		}
	}
	c.Status(http.StatusNoContent)
}
