package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/export"
	"github.com/noah-isme/technician-availability-api/pkg/jobs"
	"github.com/noah-isme/technician-availability-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

var exportHeaders = []string{"Date", "Weekday", "Source", "Windows", "Available Minutes"}

// ExportService renders resolved availability and persists the artifact.
type ExportService struct {
	technicians  technicianLookup
	availability availabilityRanger
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(technicians technicianLookup, availability availabilityRanger, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		technicians:  technicians,
		availability: availability,
		storage:      storage,
		csv:          csv,
		pdf:          pdf,
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate resolves the job's date range, renders it and stores the file.
// Failures that a retry cannot fix are wrapped with jobs.Permanent.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, jobs.Permanent(fmt.Errorf("job nil"))
	}

	technician, err := s.technicians.FindByID(ctx, job.TechnicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobs.Permanent(fmt.Errorf("technician %s no longer exists", job.TechnicianID))
		}
		return nil, fmt.Errorf("load technician: %w", err)
	}

	days, _, err := s.availability.Range(ctx, job.TechnicianID, job.Params.From, job.Params.To)
	if err != nil {
		if errors.Is(err, appErrors.ErrValidation) {
			return nil, jobs.Permanent(err)
		}
		return nil, fmt.Errorf("resolve availability: %w", err)
	}

	dataset := buildAvailabilityDataset(days)
	dataset.Caption = fmt.Sprintf("%s to %s (%s)", job.Params.From, job.Params.To, technician.Timezone)
	title := fmt.Sprintf("Availability for %s", technician.FullName)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, jobs.Permanent(fmt.Errorf("unsupported format %s", job.Params.Format))
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(storage.ExportFileName(job.TechnicianID, job.ID, string(job.Params.Format)), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("availability export rendered",
		zap.String("job_id", job.ID),
		zap.String("technician_id", job.TechnicianID),
		zap.Int("days", len(days)),
		zap.String("path", relPath),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func buildAvailabilityDataset(days []models.DayAvailability) export.Dataset {
	rows := make([]map[string]string, 0, len(days))
	total := 0
	for _, day := range days {
		windows := make([]string, 0, len(day.Windows))
		minutes := 0
		for _, w := range day.Windows {
			windows = append(windows, fmt.Sprintf("%s-%s", w.StartTime, w.EndTime))
			minutes += int(w.EndTime - w.StartTime)
		}
		total += minutes
		rows = append(rows, map[string]string{
			"Date":              day.Date.String(),
			"Weekday":           models.WeekdayNames[day.Date.DayOfWeek()],
			"Source":            day.Source,
			"Windows":           strings.Join(windows, "; "),
			"Available Minutes": strconv.Itoa(minutes),
		})
	}
	return export.Dataset{
		Headers: exportHeaders,
		Rows:    rows,
		Totals: map[string]string{
			"Date":              "Total",
			"Windows":           fmt.Sprintf("%d days", len(days)),
			"Available Minutes": strconv.Itoa(total),
		},
		Widths: []float64{1.2, 1.2, 1, 3.5, 1.3},
	}
}
