package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error)
	Preview(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error)
}

// multipart framing allowance on top of the file limit
const multipartOverhead = 64 * 1024

// ImportHandler accepts roster uploads.
type ImportHandler struct {
	imports  importService
	maxBytes int64
}

// NewImportHandler constructs ImportHandler. maxBytes bounds the uploaded file.
func NewImportHandler(imports importService, maxBytes int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxBytes: maxBytes}
}

// Import godoc
// @Summary Import a roster file into a subject
// @Description Accepts CSV, TSV, semicolon-separated text, XLSX or XLS. A failed final save returns
// @Description SAVE_FAILED together with the import report.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param code path string true "Subject code"
// @Param file formData file true "Roster file"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /subjects/{code}/imports [post]
func (h *ImportHandler) Import(c *gin.Context) {
	h.handle(c, h.imports.Import)
}

// Preview godoc
// @Summary Preview a roster import without writing anything
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param code path string true "Subject code"
// @Param file formData file true "Roster file"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/imports/preview [post]
func (h *ImportHandler) Preview(c *gin.Context) {
	h.handle(c, h.imports.Preview)
}

func (h *ImportHandler) handle(c *gin.Context, run func(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error)) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	file, err := h.readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := run(c.Request.Context(), professor, c.Param("code"), file)
	if err != nil {
		if report != nil {
			response.ErrorWithData(c, err, report)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"version": report.Version})
}

func (h *ImportHandler) readUpload(c *gin.Context) (dto.ImportFile, error) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dto.ImportFile{}, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
		}
		return dto.ImportFile{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return dto.ImportFile{}, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxBytes))
	}

	f, err := header.Open()
	if err != nil {
		return dto.ImportFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return dto.ImportFile{}, fmt.Errorf("read upload: %w", err)
	}
	return dto.ImportFile{Name: header.Filename, MimeType: header.Header.Get("Content-Type"), Data: data}, nil
}
