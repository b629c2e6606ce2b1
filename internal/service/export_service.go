package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/roster"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/export"
)

// ExportKind selects the dataset to export.
type ExportKind string

const (
	ExportAttendance ExportKind = "attendance"
	ExportGrades     ExportKind = "grades"
)

const exportDateLayout = "01/02/2006"

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type stateLoader interface {
	Load(ctx context.Context, professorID string) (roster.State, error)
}

// ExportService renders attendance and grade exports for one subject.
type ExportService struct {
	state  stateLoader
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(state stateLoader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{state: state, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the subject's attendance or grades as csv or pdf.
func (s *ExportService) Export(ctx context.Context, professorID, subjectCode string, kind ExportKind, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	state, err := s.state.Load(ctx, professorID)
	if err != nil {
		return nil, err
	}
	subject, _, ok := state.FindSubject(subjectCode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}

	var dataset export.Dataset
	switch kind {
	case ExportAttendance:
		dataset = AttendanceDataset(state, subjectCode)
	case ExportGrades:
		dataset = GradesDataset(state, subjectCode)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export")
	}

	filename := fmt.Sprintf("%s-%s.%s", subjectCode, kind, format)
	if format == "pdf" {
		title := fmt.Sprintf("%s %s - %s", subject.Code, subject.Name, cases.Title(language.English).String(string(kind)))
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, fmt.Errorf("render %s pdf: %w", kind, err)
		}
		return &dto.ExportFile{Filename: filename, ContentType: "application/pdf", Body: body}, nil
	}

	body, err := s.csv.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s csv: %w", kind, err)
	}
	return &dto.ExportFile{Filename: filename, ContentType: "text/csv; charset=utf-8", Body: body}, nil
}

// AttendanceDataset has one row per projected student and one column per recorded date.
func AttendanceDataset(state roster.State, subjectCode string) export.Dataset {
	var dates []string
	for date, bySubject := range state.Records {
		if _, ok := bySubject[subjectCode]; ok {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	headers := []string{"Student ID", "Student Name"}
	labels := make([]string, len(dates))
	for i, date := range dates {
		labels[i] = exportDate(date)
		headers = append(headers, labels[i])
	}

	rows := make([]map[string]string, 0, len(state.Enrolled(subjectCode)))
	for _, id := range state.Enrolled(subjectCode) {
		student, _ := state.Student(id)
		row := map[string]string{"Student ID": id.String(), "Student Name": student.Name}
		for i, date := range dates {
			row[labels[i]] = string(state.Records[date][subjectCode][id.String()])
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// GradesDataset has one row per recorded score.
func GradesDataset(state roster.State, subjectCode string) export.Dataset {
	headers := []string{"Assessment", "Type", "Date", "Student ID", "Student Name", "Score", "Max Points"}

	byType := state.Grades[subjectCode]
	types := make([]string, 0, len(byType))
	for kind := range byType {
		types = append(types, kind)
	}
	sort.Strings(types)

	var rows []map[string]string
	for _, kind := range types {
		assessments := append(byType[kind][:0:0], byType[kind]...)
		sort.SliceStable(assessments, func(i, j int) bool {
			if assessments[i].Date != assessments[j].Date {
				return assessments[i].Date < assessments[j].Date
			}
			return assessments[i].Name < assessments[j].Name
		})
		for _, a := range assessments {
			ids := make([]string, 0, len(a.Scores))
			for id := range a.Scores {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				student, _ := state.Student(roster.StudentID(id))
				rows = append(rows, map[string]string{
					"Assessment":   a.Name,
					"Type":         a.Type,
					"Date":         exportDate(a.Date),
					"Student ID":   id,
					"Student Name": student.Name,
					"Score":        strconv.FormatFloat(a.Scores[id], 'f', -1, 64),
					"Max Points":   strconv.FormatFloat(a.MaxPoints, 'f', -1, 64),
				})
			}
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func exportDate(value string) string {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	return parsed.Format(exportDateLayout)
}
