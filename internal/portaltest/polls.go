package portaltest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ampm-club/portal/internal/poll"
)

type pollCreateRequest struct {
	Title            string    `json:"title" binding:"required,max=100"`
	Description      string    `json:"description" binding:"max=2000"`
	MaxSelect        int       `json:"maxSelect" binding:"min=1"`
	Multiple         bool      `json:"multiple"`
	Anonymous        bool      `json:"anonymous"`
	AllowAddOption   bool      `json:"allowAddOption"`
	AllowRevote      bool      `json:"allowRevote"`
	ResultVisibility string    `json:"resultVisibility" binding:"required,oneof=ALWAYS AFTER_CLOSE AUTHENTICATED ADMIN_ONLY"`
	DeadlineAt       time.Time `json:"deadlineAt" binding:"required"`
	Options          []string  `json:"options" binding:"required,min=2,dive,max=200"`
}

func (s *Server) handlePollCreate(c *gin.Context) {
	rec := currentStudent(c)

	var req pollCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Multiple && req.MaxSelect > len(req.Options) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "maxSelect exceeds option count"})
		return
	}

	now := s.nowFunc()
	s.mu.Lock()
	s.pollSeq++
	record := &pollRecord{
		Meta: poll.Detail{
			ID:               s.pollSeq,
			Title:            req.Title,
			Description:      req.Description,
			Status:           poll.StatusOpen,
			MaxSelect:        req.MaxSelect,
			Multiple:         req.Multiple,
			Anonymous:        req.Anonymous,
			AllowAddOption:   req.AllowAddOption,
			AllowRevote:      req.AllowRevote,
			ResultVisibility: req.ResultVisibility,
			DeadlineAt:       req.DeadlineAt,
			CreatedBy:        rec.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
			Open:             true,
		},
		Votes: make(map[int64][]int64),
	}
	for _, label := range req.Options {
		s.optionSeq++
		record.Meta.Options = append(record.Meta.Options, poll.Option{ID: s.optionSeq, Label: label})
	}
	s.polls[record.Meta.ID] = record
	s.mu.Unlock()

	c.JSON(http.StatusCreated, s.detailFor(record, rec))
}

func (s *Server) handlePollList(c *gin.Context) {
	query := strings.ToLower(c.Query("query"))
	status := c.Query("status")
	deadlineFrom, _ := time.Parse(time.RFC3339, c.Query("deadlineFrom"))
	deadlineTo, _ := time.Parse(time.RFC3339, c.Query("deadlineTo"))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	s.mu.Lock()
	matched := make([]poll.Summary, 0, len(s.polls))
	for _, record := range s.polls {
		meta := record.Meta
		if query != "" && !strings.Contains(strings.ToLower(meta.Title), query) {
			continue
		}
		if status != "" && meta.Status != status {
			continue
		}
		if !deadlineFrom.IsZero() && meta.DeadlineAt.Before(deadlineFrom) {
			continue
		}
		if !deadlineTo.IsZero() && meta.DeadlineAt.After(deadlineTo) {
			continue
		}
		matched = append(matched, poll.Summary{
			ID:             meta.ID,
			Title:          meta.Title,
			Status:         meta.Status,
			MaxSelect:      meta.MaxSelect,
			Multiple:       meta.Multiple,
			Anonymous:      meta.Anonymous,
			AllowAddOption: meta.AllowAddOption,
			AllowRevote:    meta.AllowRevote,
			DeadlineAt:     meta.DeadlineAt,
			CreatedBy:      meta.CreatedBy,
			CreatedAt:      meta.CreatedAt,
		})
	}
	s.mu.Unlock()

	sortSummaries(matched, c.QueryArray("sort"))

	total := len(matched)
	totalPages := (total + size - 1) / size
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := matched[start:end]

	c.JSON(http.StatusOK, poll.Page{
		TotalElements:    total,
		TotalPages:       totalPages,
		First:            page == 0,
		Last:             page >= totalPages-1,
		Size:             size,
		Content:          content,
		Number:           page,
		NumberOfElements: len(content),
		Empty:            len(content) == 0,
	})
}

// sortSummaries applies Spring-style "field,DIRECTION" sort keys; only the
// first recognized key wins. Default is newest first.
func sortSummaries(items []poll.Summary, keys []string) {
	field, desc := "createdAt", true
	for _, key := range keys {
		parts := strings.SplitN(key, ",", 2)
		switch parts[0] {
		case "createdAt", "deadlineAt", "title":
			field = parts[0]
			desc = len(parts) == 2 && strings.EqualFold(parts[1], "DESC")
		default:
			continue
		}
		break
	}

	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch field {
		case "deadlineAt":
			less = items[i].DeadlineAt.Before(items[j].DeadlineAt)
		case "title":
			less = items[i].Title < items[j].Title
		default:
			less = items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if desc {
			return !less && !equalKey(items[i], items[j], field)
		}
		return less
	})
}

func equalKey(a, b poll.Summary, field string) bool {
	switch field {
	case "deadlineAt":
		return a.DeadlineAt.Equal(b.DeadlineAt)
	case "title":
		return a.Title == b.Title
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (s *Server) handlePollGet(c *gin.Context) {
	record, ok := s.pollByParam(c)
	if !ok {
		return
	}
	// Vote state shows up when the (optional) token verifies.
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	viewer := s.studentFromToken(parser, c.GetHeader("Authorization"))
	c.JSON(http.StatusOK, s.detailFor(record, viewer))
}

type pollVoteRequest struct {
	OptionIDs []int64 `json:"optionIds" binding:"required,min=1"`
}

func (s *Server) handlePollVote(c *gin.Context) {
	rec := currentStudent(c)
	record, ok := s.pollByParam(c)
	if !ok {
		return
	}

	var req pollVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := &record.Meta
	if meta.Status != poll.StatusOpen || s.nowFunc().After(meta.DeadlineAt) {
		c.JSON(http.StatusConflict, gin.H{"message": "poll is closed"})
		return
	}
	if _, voted := record.Votes[rec.ID]; voted && !meta.AllowRevote {
		c.JSON(http.StatusConflict, gin.H{"message": "revoting is not allowed"})
		return
	}
	if !meta.Multiple && len(req.OptionIDs) > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "single-choice poll"})
		return
	}
	if meta.Multiple && len(req.OptionIDs) > meta.MaxSelect {
		c.JSON(http.StatusBadRequest, gin.H{"message": "too many selections"})
		return
	}
	valid := make(map[int64]bool, len(meta.Options))
	for _, opt := range meta.Options {
		valid[opt.ID] = true
	}
	for _, id := range req.OptionIDs {
		if !valid[id] {
			c.JSON(http.StatusBadRequest, gin.H{"message": "unknown option"})
			return
		}
	}

	record.Votes[rec.ID] = append([]int64(nil), req.OptionIDs...)
	meta.UpdatedAt = s.nowFunc()
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePollClose(c *gin.Context) {
	rec := currentStudent(c)
	record, ok := s.pollByParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !isStaff(rec) && record.Meta.CreatedBy != rec.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "only staff or the author may close"})
		return
	}
	if record.Meta.Status == poll.StatusClosed {
		c.JSON(http.StatusConflict, gin.H{"message": "already closed"})
		return
	}
	now := s.nowFunc()
	record.Meta.Status = poll.StatusClosed
	record.Meta.Open = false
	record.Meta.ClosedAt = &now
	record.Meta.UpdatedAt = now
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePollDelete(c *gin.Context) {
	rec := currentStudent(c)
	record, ok := s.pollByParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !isStaff(rec) && record.Meta.CreatedBy != rec.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "only staff or the author may delete"})
		return
	}
	delete(s.polls, record.Meta.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePollResults(c *gin.Context) {
	rec := currentStudent(c)
	record, ok := s.pollByParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := record.Meta
	switch meta.ResultVisibility {
	case poll.VisibilityAdminOnly:
		if !isStaff(rec) {
			c.JSON(http.StatusForbidden, gin.H{"message": "results are admin only"})
			return
		}
	case poll.VisibilityAfterClose:
		if meta.Status != poll.StatusClosed && !isStaff(rec) {
			c.JSON(http.StatusForbidden, gin.H{"message": "results are visible after close"})
			return
		}
	}

	options := make([]poll.ResultOption, 0, len(meta.Options))
	for _, opt := range meta.Options {
		result := poll.ResultOption{ID: opt.ID, Label: opt.Label, Voters: []poll.Voter{}}
		for studentID, picks := range record.Votes {
			for _, pick := range picks {
				if pick != opt.ID {
					continue
				}
				result.Count++
				if !meta.Anonymous {
					if voter := s.findStudentByID(studentID); voter != nil {
						result.Voters = append(result.Voters, poll.Voter{StudentID: voter.ID, StudentName: voter.Name})
					}
				}
			}
		}
		options = append(options, result)
	}

	c.JSON(http.StatusOK, poll.Results{
		Poll:                s.detailForLocked(record, rec),
		Options:             options,
		Voted:               record.Votes[rec.ID] != nil,
		MySelectedOptionIDs: record.Votes[rec.ID],
	})
}

func (s *Server) pollByParam(c *gin.Context) (*pollRecord, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid poll id"})
		return nil, false
	}
	s.mu.Lock()
	record, ok := s.polls[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "no such poll"})
		return nil, false
	}
	return record, true
}

func (s *Server) detailFor(record *pollRecord, viewer *studentRecord) poll.Detail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailForLocked(record, viewer)
}

func (s *Server) detailForLocked(record *pollRecord, viewer *studentRecord) poll.Detail {
	detail := record.Meta
	detail.Options = append([]poll.Option(nil), record.Meta.Options...)
	if viewer != nil {
		if picks, ok := record.Votes[viewer.ID]; ok {
			detail.Voted = true
			detail.MySelectedOptionIDs = append([]int64(nil), picks...)
		}
	}
	return detail
}
