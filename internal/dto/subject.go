package dto

import "github.com/noah-isme/sma-roster-api/internal/models"

// CreateSubjectRequest adds an active subject.
type CreateSubjectRequest struct {
	Code    string      `json:"code" validate:"required,max=32"`
	Name    string      `json:"name" validate:"required,max=255"`
	Credits int         `json:"credits" validate:"gte=0,lte=60"`
	Term    models.Term `json:"term" validate:"required,oneof=first second"`
}

// SubjectSummary is a subject with its projected enrollment count.
type SubjectSummary struct {
	models.Subject
	EnrolledCount int `json:"enrolledCount"`
}

// SubjectLists groups subjects by lifecycle stage.
type SubjectLists struct {
	Active     []SubjectSummary `json:"active"`
	Removed    []SubjectSummary `json:"removed"`
	RecycleBin []SubjectSummary `json:"recycleBin"`
}
