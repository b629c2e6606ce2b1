package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

type subjectService interface {
	List(ctx context.Context, professorID string) (*dto.SubjectLists, error)
	Create(ctx context.Context, professorID string, req dto.CreateSubjectRequest) (*models.Subject, error)
	Archive(ctx context.Context, professorID, code string) (*dto.SubjectLists, error)
	Recycle(ctx context.Context, professorID, code string) (*dto.SubjectLists, error)
	Restore(ctx context.Context, professorID, code string) (*dto.SubjectLists, error)
	Delete(ctx context.Context, professorID, code string) error
}

// SubjectHandler exposes the subject lifecycle.
type SubjectHandler struct {
	subjects subjectService
}

// NewSubjectHandler constructs SubjectHandler.
func NewSubjectHandler(subjects subjectService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

// List godoc
// @Summary List subjects by lifecycle stage
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	lists, err := h.subjects.List(c.Request.Context(), professor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lists, nil)
}

// Create godoc
// @Summary Create subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	var req dto.CreateSubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.subjects.Create(c.Request.Context(), professor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Archive godoc
// @Summary Move an active subject to the removed list
// @Tags Subjects
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/archive [post]
func (h *SubjectHandler) Archive(c *gin.Context) {
	h.move(c, h.subjects.Archive)
}

// Recycle godoc
// @Summary Move a subject to the recycle bin
// @Tags Subjects
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/recycle [post]
func (h *SubjectHandler) Recycle(c *gin.Context) {
	h.move(c, h.subjects.Recycle)
}

// Restore godoc
// @Summary Restore a removed or recycled subject
// @Tags Subjects
// @Param code path string true "Subject code"
// @Success 200 {object} response.Envelope
// @Router /subjects/{code}/restore [post]
func (h *SubjectHandler) Restore(c *gin.Context) {
	h.move(c, h.subjects.Restore)
}

func (h *SubjectHandler) move(c *gin.Context, fn func(ctx context.Context, professorID, code string) (*dto.SubjectLists, error)) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	lists, err := fn(c.Request.Context(), professor, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lists, nil)
}

// Delete godoc
// @Summary Permanently delete a recycled subject
// @Tags Subjects
// @Param code path string true "Subject code"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /subjects/{code} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	professor, ok := professorID(c)
	if !ok {
		return
	}
	if err := h.subjects.Delete(c.Request.Context(), professor, c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
