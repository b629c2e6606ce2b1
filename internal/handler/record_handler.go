package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type recordService interface {
	RecordAttendance(ctx context.Context, professorID, subjectCode string, req dto.AttendanceRequest) (*dto.RecordResult, error)
	RecordAssessment(ctx context.Context, professorID, subjectCode string, req dto.AssessmentRequest) (*dto.RecordResult, error)
}

// RecordHandler records attendance and assessment scores.
type RecordHandler struct {
	records recordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records recordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// Attendance godoc
// @Summary Record attendance for a date
// @Tags Records
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body dto.AttendanceRequest true "Attendance"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/attendance [post]
func (h *RecordHandler) Attendance(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	var req dto.AttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.records.RecordAttendance(c.Request.Context(), professor, c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assessment godoc
// @Summary Insert or replace an assessment
// @Tags Records
// @Accept json
// @Produce json
// @Param code path string true "Subject code"
// @Param payload body dto.AssessmentRequest true "Assessment"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/assessments [post]
func (h *RecordHandler) Assessment(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	var req dto.AssessmentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.records.RecordAssessment(c.Request.Context(), professor, c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
