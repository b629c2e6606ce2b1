package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type rosterService interface {
	Roster(ctx context.Context, professorID, subjectCode string) (*dto.RosterResponse, error)
	Students(ctx context.Context, professorID string, query dto.StudentQuery) ([]dto.RosterEntry, error)
	AddStudent(ctx context.Context, professorID, subjectCode string, req dto.AddStudentRequest) (*dto.ImportReport, error)
	ArchiveStudent(ctx context.Context, professorID, subjectCode, rawID string) (*dto.RosterResponse, error)
	RestoreStudent(ctx context.Context, professorID, subjectCode, rawID string) (*dto.RosterResponse, error)
	DeleteArchived(ctx context.Context, professorID string) (*dto.DeleteArchivedResult, error)
}

// RosterHandler manages subject rosters and the student directory.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Roster godoc
// @Summary Students projected into a subject
// @Tags Roster
// @Produce json
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	roster, err := h.roster.Roster(c.Request.Context(), professor, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Students godoc
// @Summary Professor-wide student directory
// @Tags Roster
// @Produce json
// @Param search query string false "Name or ID fragment"
// @Param archived query bool false "Only students archived in at least one subject"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *RosterHandler) Students(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	var query dto.StudentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	students, err := h.roster.Students(c.Request.Context(), professor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"count": len(students)})
}

// AddStudent godoc
// @Summary Enroll a single student
// @Description Runs through the same reconciliation as a file import.
// @Tags Roster
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body dto.AddStudentRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/students [post]
func (h *RosterHandler) AddStudent(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	var req dto.AddStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.roster.AddStudent(c.Request.Context(), professor, c.Param("code"), req)
	if err != nil {
		if report != nil {
			response.ErrorWithData(c, err, report)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ArchiveStudent godoc
// @Summary Archive a student within a subject
// @Tags Roster
// @Param code path string true "Subject code"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/students/{studentId}/archive [post]
func (h *RosterHandler) ArchiveStudent(c *gin.Context) {
	h.mutate(c, h.roster.ArchiveStudent)
}

// RestoreStudent godoc
// @Summary Restore an archived student within a subject
// @Tags Roster
// @Param code path string true "Subject code"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/students/{studentId}/restore [post]
func (h *RosterHandler) RestoreStudent(c *gin.Context) {
	h.mutate(c, h.roster.RestoreStudent)
}

func (h *RosterHandler) mutate(c *gin.Context, fn func(ctx context.Context, professorID, subjectCode, rawID string) (*dto.RosterResponse, error)) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	roster, err := fn(c.Request.Context(), professor, c.Param("code"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// DeleteArchived godoc
// @Summary Hard-delete students that are archived everywhere
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/archived [delete]
func (h *RosterHandler) DeleteArchived(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	result, err := h.roster.DeleteArchived(c.Request.Context(), professor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
