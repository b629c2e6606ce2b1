package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, professorID, subjectCode string, kind service.ExportKind, format string) (*dto.ExportFile, error)
}

// ExportHandler serves attendance and grade downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Attendance godoc
// @Summary Download attendance
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param code path string true "Subject code"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /subjects/{code}/exports/attendance [get]
func (h *ExportHandler) Attendance(c *gin.Context) {
	h.download(c, service.ExportAttendance)
}

// Grades godoc
// @Summary Download assessment scores
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param code path string true "Subject code"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /subjects/{code}/exports/grades [get]
func (h *ExportHandler) Grades(c *gin.Context) {
	h.download(c, service.ExportGrades)
}

func (h *ExportHandler) download(c *gin.Context, kind service.ExportKind) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	file, err := h.exports.Export(c.Request.Context(), professor, c.Param("code"), kind, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
