package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type mockSignatureLister struct {
	doc     *models.Document
	listing *models.SignatureListing
}

func (m *mockSignatureLister) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	return m.doc, nil
}

func (m *mockSignatureLister) ListSignatures(ctx context.Context, documentID, viewerID string, viewerIsAdmin bool) (*models.SignatureListing, error) {
	return m.listing, nil
}

type mockAuditWriter struct {
	logs []*models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func exportFixture() (*ExportService, *mockAuditWriter) {
	approve := models.PositionApprove
	masked := models.SignatureView{
		ID: "sig-2", SignerName: "Siti", Role: models.TenancyRoleTenant,
		UnitName: "Tenant unit", Masked: true, CreatedAt: time.Now().UTC(),
	}
	open := models.SignatureView{
		ID: "sig-1", SignerName: "Budi", Role: models.TenancyRoleTenant,
		Position: &approve, UnitName: "Toko Sinar", UnitFloor: "2", CreatedAt: time.Now().UTC(),
	}
	lister := &mockSignatureLister{
		doc: &models.Document{ID: "doc-1", Title: "Service charge adjustment"},
		listing: &models.SignatureListing{
			Signatures: []models.SignatureView{open, masked},
			Tally:      models.VisibilityTally{PublicVotes: 1, PrivateVotes: 1, TotalSigners: 2, TotalVotes: 2},
		},
	}
	audit := &mockAuditWriter{}
	svc := NewExportService(lister, audit, ExportConfig{Enabled: true}, nil)
	return svc, audit
}

func TestSignatureSheetCSVUsesProjectedRows(t *testing.T) {
	svc, audit := exportFixture()

	result, err := svc.SignatureSheet(context.Background(), "doc-1", "viewer-1", false, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "Budi")
	assert.Contains(t, body, "APPROVE")
	// The masked row exports without a position or a real unit name.
	assert.Contains(t, body, "Siti")
	assert.Contains(t, body, "Tenant unit")
	assert.NotContains(t, body, "Kios")

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionExport, audit.logs[0].Action)
}

func TestSignatureSheetPDFAndXLSXRender(t *testing.T) {
	svc, _ := exportFixture()

	pdf, err := svc.SignatureSheet(context.Background(), "doc-1", "viewer-1", true, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))

	xlsx, err := svc.SignatureSheet(context.Background(), "doc-1", "viewer-1", true, ExportFormatXLSX)
	require.NoError(t, err)
	assert.NotEmpty(t, xlsx.Payload)
	assert.True(t, strings.HasSuffix(xlsx.Filename, ".xlsx"))
}

func TestSignatureSheetRejectsUnknownFormat(t *testing.T) {
	svc, _ := exportFixture()

	_, err := svc.SignatureSheet(context.Background(), "doc-1", "viewer-1", true, "docx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSignatureSheetDisabled(t *testing.T) {
	svc := NewExportService(&mockSignatureLister{}, &mockAuditWriter{}, ExportConfig{Enabled: false}, nil)

	_, err := svc.SignatureSheet(context.Background(), "doc-1", "viewer-1", true, ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
