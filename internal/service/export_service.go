package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
	"github.com/wisma-sentral/wisma-admin-api/pkg/export"
)

// Export formats accepted by the signature sheet endpoint.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

type signatureLister interface {
	ListSignatures(ctx context.Context, documentID, viewerID string, viewerIsAdmin bool) (*models.SignatureListing, error)
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheetName string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled bool
	MaxRows int
}

// ExportResult is a rendered signature sheet.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders signature sheets. The rows come from the same
// projection the listing endpoint serves, so an export never reveals more
// than the requesting viewer could see online.
type ExportService struct {
	signatures signatureLister
	audit      auditWriter
	csv        csvRenderer
	pdf        pdfRenderer
	xlsx       xlsxRenderer
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(signatures signatureLister, audit auditWriter, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	return &ExportService{
		signatures: signatures,
		audit:      audit,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		logger:     logger,
		cfg:        cfg,
	}
}

// SignatureSheet renders the projected signature listing of a document in
// the requested format.
func (s *ExportService) SignatureSheet(ctx context.Context, documentID, viewerID string, viewerIsAdmin bool, format string) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	doc, err := s.signatures.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	listing, err := s.signatures.ListSignatures(ctx, documentID, viewerID, viewerIsAdmin)
	if err != nil {
		return nil, err
	}
	if len(listing.Signatures) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("listing exceeds export limit of %d rows", s.cfg.MaxRows))
	}

	dataset := buildSignatureDataset(listing)
	title := fmt.Sprintf("Signature Sheet: %s", doc.Title)

	var payload []byte
	var contentType string
	switch strings.ToLower(format) {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, "Signatures")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &viewerID,
		Action:     models.AuditActionExport,
		Resource:   "document",
		ResourceID: &documentID,
		NewValues:  mustJSON(map[string]interface{}{"format": format, "rows": len(listing.Signatures)}),
	}); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	return &ExportResult{
		Filename:    fmt.Sprintf("signatures_%s_%s.%s", sanitizeFilename(documentID), timestamp, strings.ToLower(format)),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildSignatureDataset(listing *models.SignatureListing) export.Dataset {
	rows := make([]map[string]string, 0, len(listing.Signatures))
	for _, view := range listing.Signatures {
		position := ""
		if view.Position != nil {
			position = string(*view.Position)
		}
		vote := ""
		if view.VisibilityVote != nil {
			if *view.VisibilityVote {
				vote = "public"
			} else {
				vote = "private"
			}
		}
		rows = append(rows, map[string]string{
			"Signer":    view.SignerName,
			"Role":      string(view.Role),
			"Unit":      view.UnitName,
			"Floor":     view.UnitFloor,
			"Position":  position,
			"Vote":      vote,
			"Signed At": view.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"Signer", "Role", "Unit", "Floor", "Position", "Vote", "Signed At"},
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
