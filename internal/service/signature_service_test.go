package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

// mockSignatureRepo mirrors the ledger's constraint behaviour: duplicate
// inserts lose, the vote update only lands while the column is unset.
type mockSignatureRepo struct {
	mu         sync.Mutex
	signatures []*models.Signature
	nextID     int
}

func (m *mockSignatureRepo) find(documentID, signerID string) *models.Signature {
	for _, sig := range m.signatures {
		if sig.DocumentID == documentID && sig.SignerID == signerID {
			return sig
		}
	}
	return nil
}

func (m *mockSignatureRepo) Insert(ctx context.Context, sig *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(sig.DocumentID, sig.SignerID) != nil {
		return appErrors.ErrAlreadySigned
	}
	m.nextID++
	sig.ID = fmt.Sprintf("sig-%d", m.nextID)
	sig.CreatedAt = time.Now().UTC()
	sig.UpdatedAt = sig.CreatedAt
	stored := *sig
	m.signatures = append(m.signatures, &stored)
	return nil
}

func (m *mockSignatureRepo) FindByID(ctx context.Context, id string) (*models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sig := range m.signatures {
		if sig.ID == id {
			copied := *sig
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSignatureRepo) FindByDocumentAndSigner(ctx context.Context, documentID, signerID string) (*models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sig := m.find(documentID, signerID); sig != nil {
		copied := *sig
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSignatureRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signature
	for _, sig := range m.signatures {
		if sig.DocumentID == documentID {
			out = append(out, *sig)
		}
	}
	return out, nil
}

func (m *mockSignatureRepo) Update(ctx context.Context, sig *models.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stored := range m.signatures {
		if stored.ID == sig.ID {
			stored.Role = sig.Role
			stored.Position = sig.Position
			stored.Artifact = sig.Artifact
			stored.UnitName = sig.UnitName
			stored.UnitFloor = sig.UnitFloor
			stored.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockSignatureRepo) SetVisibilityVote(ctx context.Context, documentID, signerID string, choice bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sig := m.find(documentID, signerID)
	if sig == nil || sig.VisibilityVote != nil {
		return false, nil
	}
	sig.VisibilityVote = &choice
	return true, nil
}

type mockDocumentReader struct {
	documents map[string]*models.Document
}

func (m *mockDocumentReader) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := m.documents[id]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type mockDirectory struct {
	tenancies map[string][]models.Tenancy
	units     map[string]*models.Unit
}

func (m *mockDirectory) ListTenancies(ctx context.Context, userID string) ([]models.Tenancy, error) {
	return m.tenancies[userID], nil
}

func (m *mockDirectory) FindUnit(ctx context.Context, unitID string) (*models.Unit, error) {
	if unit, ok := m.units[unitID]; ok {
		return unit, nil
	}
	return nil, sql.ErrNoRows
}

func tenantOnlyDocument() *models.Document {
	expiry := time.Now().UTC().Add(7 * 24 * time.Hour)
	return &models.Document{
		ID:                "doc-1",
		Title:             "Service charge adjustment",
		SignatureRequired: true,
		SignatureTarget:   models.SignatureTargetTenant,
		CreatedAt:         time.Now().UTC(),
		ExpiryAt:          &expiry,
	}
}

func newSignatureFixture(doc *models.Document) (*SignatureService, *mockSignatureRepo) {
	repo := &mockSignatureRepo{}
	docs := &mockDocumentReader{documents: map[string]*models.Document{doc.ID: doc}}
	directory := &mockDirectory{
		tenancies: map[string][]models.Tenancy{
			"tenant-a":   {{UserID: "tenant-a", UnitID: "unit-1", Role: models.TenancyRoleTenant, UnitName: "Toko Sinar", UnitFloor: "2"}},
			"tenant-b":   {{UserID: "tenant-b", UnitID: "unit-2", Role: models.TenancyRoleTenant, UnitName: "Kios Melati", UnitFloor: "1"}},
			"tenant-c":   {{UserID: "tenant-c", UnitID: "unit-3", Role: models.TenancyRoleTenant, UnitName: "Toko Anggrek", UnitFloor: "3"}},
			"landlord-d": {{UserID: "landlord-d", UnitID: "unit-4", Role: models.TenancyRoleLandlord, UnitName: "Blok B-12", UnitFloor: "1"}, {UserID: "landlord-d", UnitID: "unit-5", Role: models.TenancyRoleTenant, UnitName: "Blok B-13", UnitFloor: "1"}},
		},
		units: map[string]*models.Unit{},
	}
	svc := NewSignatureService(repo, docs, directory, nil, validator.New(), zap.NewNop())
	return svc, repo
}

func signReq(role models.TenancyRole, position models.SignaturePosition) SignRequest {
	return SignRequest{Role: role, Position: position, Artifact: []byte("rendered")}
}

func TestSignRecordsSignatureWithUnitSnapshot(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	sig, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)
	assert.Equal(t, "Toko Sinar", sig.UnitName)
	assert.Equal(t, "2", sig.UnitFloor)
	assert.Equal(t, models.PositionApprove, sig.Position)
	assert.Nil(t, sig.VisibilityVote)
}

func TestSignDuplicateReturnsAlreadySigned(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	_, err = svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionReject))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadySigned))
}

func TestSignConcurrentDuplicatesExactlyOneWins(t *testing.T) {
	svc, repo := newSignatureFixture(tenantOnlyDocument())

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, appErrors.Is(err, appErrors.ErrAlreadySigned))
		}
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, repo.signatures, 1)
}

func TestSignRejectsRoleNotAcceptedByTarget(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	// Landlord D also holds a tenant unit but chose the landlord role.
	_, err := svc.Sign(context.Background(), "doc-1", "landlord-d", signReq(models.TenancyRoleLandlord, models.PositionApprove))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))

	// The same signer may sign under the tenant role they do hold.
	_, err = svc.Sign(context.Background(), "doc-1", "landlord-d", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)
}

func TestSignRejectsRoleNotHeld(t *testing.T) {
	doc := tenantOnlyDocument()
	doc.SignatureTarget = models.SignatureTargetBoth
	svc, _ := newSignatureFixture(doc)

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleLandlord, models.PositionApprove))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))
}

func TestSignRejectsDocumentWithoutSignatures(t *testing.T) {
	doc := tenantOnlyDocument()
	doc.SignatureRequired = false
	svc, _ := newSignatureFixture(doc)

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))
}

func TestSignExpiredDocumentReturnsDocumentClosed(t *testing.T) {
	doc := tenantOnlyDocument()
	expired := time.Now().UTC().Add(-time.Hour)
	doc.ExpiryAt = &expired
	svc, _ := newSignatureFixture(doc)

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDocumentClosed))

	// Role mismatch takes precedence so the caller sees the real reason.
	_, err = svc.Sign(context.Background(), "doc-1", "landlord-d", signReq(models.TenancyRoleLandlord, models.PositionApprove))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotEligible))
}

func TestReviseUpdatesInPlace(t *testing.T) {
	svc, repo := newSignatureFixture(tenantOnlyDocument())

	sig, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	_, err = svc.CastVisibilityVote(context.Background(), "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)

	revised, err := svc.Revise(context.Background(), sig.ID, "tenant-a", ReviseRequest{
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
		Artifact: []byte("updated"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PositionReject, revised.Position)

	// The revision never touches the vote or creates a second row.
	stored, err := repo.FindByDocumentAndSigner(context.Background(), "doc-1", "tenant-a")
	require.NoError(t, err)
	require.NotNil(t, stored.VisibilityVote)
	assert.True(t, *stored.VisibilityVote)
	assert.Len(t, repo.signatures, 1)
}

func TestReviseByNonOwnerReturnsNotOwner(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	sig, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	_, err = svc.Revise(context.Background(), sig.ID, "tenant-b", ReviseRequest{
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
		Artifact: []byte("forged"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotOwner))
}

func TestReviseAfterExpiryReturnsDocumentClosed(t *testing.T) {
	doc := tenantOnlyDocument()
	svc, _ := newSignatureFixture(doc)

	sig, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Minute)
	doc.ExpiryAt = &expired

	_, err = svc.Revise(context.Background(), sig.ID, "tenant-a", ReviseRequest{
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
		Artifact: []byte("late"),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDocumentClosed))
}

func TestVoteWithoutSignatureReturnsSignatureRequired(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	_, err := svc.CastVisibilityVote(context.Background(), "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSignatureRequired))
}

func TestVoteIsWriteOnceAndReportsExistingChoice(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	tally, err := svc.CastVisibilityVote(context.Background(), "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)
	assert.Equal(t, 1, tally.PublicVotes)

	_, err = svc.CastVisibilityVote(context.Background(), "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePrivate})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyVoted.Code, appErr.Code)
	assert.Equal(t, VoteChoicePublic, appErr.Details["existing_choice"])

	// The losing attempt never flipped the stored vote.
	after, err := svc.GetTally(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.PublicVotes)
	assert.Equal(t, 0, after.PrivateVotes)
}

func TestVoteAfterExpiryReturnsDocumentClosed(t *testing.T) {
	doc := tenantOnlyDocument()
	svc, _ := newSignatureFixture(doc)

	_, err := svc.Sign(context.Background(), "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Minute)
	doc.ExpiryAt = &expired

	_, err = svc.CastVisibilityVote(context.Background(), "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDocumentClosed))
}

// Two signers split the vote: the tie keeps every row masked for outside
// viewers even though one of them voted public. A third public vote then
// opens the listing for everyone.
func TestTiedTallyMasksListingThenMajorityOpensIt(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())
	ctx := context.Background()

	_, err := svc.Sign(ctx, "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)
	_, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)

	_, err = svc.Sign(ctx, "doc-1", "tenant-b", signReq(models.TenancyRoleTenant, models.PositionReject))
	require.NoError(t, err)
	tally, err := svc.CastVisibilityVote(ctx, "doc-1", "tenant-b", VisibilityVoteRequest{Choice: VoteChoicePrivate})
	require.NoError(t, err)

	assert.Equal(t, 1, tally.PublicVotes)
	assert.Equal(t, 1, tally.PrivateVotes)
	assert.Equal(t, 2, tally.TotalSigners)
	assert.Equal(t, 2, tally.TotalVotes)
	assert.False(t, tally.IsPublic)

	listing, err := svc.ListSignatures(ctx, "doc-1", "outsider", false)
	require.NoError(t, err)
	require.Len(t, listing.Signatures, 2)
	for _, view := range listing.Signatures {
		assert.True(t, view.Masked)
		assert.Nil(t, view.Position)
		assert.Nil(t, view.Artifact)
	}

	_, err = svc.Sign(ctx, "doc-1", "tenant-c", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)
	tally, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-c", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)
	assert.Equal(t, 2, tally.PublicVotes)
	assert.Equal(t, 1, tally.PrivateVotes)
	assert.True(t, tally.IsPublic)

	listing, err = svc.ListSignatures(ctx, "doc-1", "outsider", false)
	require.NoError(t, err)
	require.Len(t, listing.Signatures, 3)
	for _, view := range listing.Signatures {
		assert.False(t, view.Masked)
		require.NotNil(t, view.Position)
	}
}

func TestListingUnmaskedForAdminAndSelfWhilePrivate(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())
	ctx := context.Background()

	_, err := svc.Sign(ctx, "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	adminListing, err := svc.ListSignatures(ctx, "doc-1", "admin-1", true)
	require.NoError(t, err)
	require.Len(t, adminListing.Signatures, 1)
	assert.False(t, adminListing.Signatures[0].Masked)

	selfListing, err := svc.ListSignatures(ctx, "doc-1", "tenant-a", false)
	require.NoError(t, err)
	assert.False(t, selfListing.Signatures[0].Masked)

	strangerListing, err := svc.ListSignatures(ctx, "doc-1", "tenant-b", false)
	require.NoError(t, err)
	assert.True(t, strangerListing.Signatures[0].Masked)
}

// Votes keep counting after closure even though writes are frozen: closure
// freezes the ledger, and the tally stays readable and fresh.
func TestTallyIsRecomputedNotCached(t *testing.T) {
	svc, repo := newSignatureFixture(tenantOnlyDocument())
	ctx := context.Background()

	for _, signer := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		_, err := svc.Sign(ctx, "doc-1", signer, signReq(models.TenancyRoleTenant, models.PositionApprove))
		require.NoError(t, err)
	}

	_, err := svc.CastVisibilityVote(ctx, "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)

	tally, err := svc.GetTally(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, tally.IsPublic)

	// Two private votes arrive; is_public must flip back to false.
	_, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-b", VisibilityVoteRequest{Choice: VoteChoicePrivate})
	require.NoError(t, err)
	tally, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-c", VisibilityVoteRequest{Choice: VoteChoicePrivate})
	require.NoError(t, err)
	assert.False(t, tally.IsPublic)
	assert.Equal(t, 1, tally.PublicVotes)
	assert.Equal(t, 2, tally.PrivateVotes)
	assert.Len(t, repo.signatures, 3)
}

func TestGetTallyUnknownDocumentReturnsNotFound(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())

	_, err := svc.GetTally(context.Background(), "doc-404")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestLedgerOutcomesMoveDomainCounters(t *testing.T) {
	svc, _ := newSignatureFixture(tenantOnlyDocument())
	metrics := NewMetricsService()
	svc.metrics = metrics
	ctx := context.Background()

	_, err := svc.Sign(ctx, "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)
	_, err = svc.Sign(ctx, "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.Error(t, err)

	_, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePublic})
	require.NoError(t, err)
	_, err = svc.CastVisibilityVote(ctx, "doc-1", "tenant-a", VisibilityVoteRequest{Choice: VoteChoicePrivate})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureTotal.WithLabelValues("sign", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureTotal.WithLabelValues("sign", "already_signed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.voteTotal.WithLabelValues("public", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.voteTotal.WithLabelValues("private", "already_voted")))

	// Repository round-trips land in the query histogram.
	assert.Greater(t, testutil.CollectAndCount(metrics.dbQueryDuration), 0)
}

func TestReviseOutcomeCountedPerAction(t *testing.T) {
	svc, repo := newSignatureFixture(tenantOnlyDocument())
	metrics := NewMetricsService()
	svc.metrics = metrics
	ctx := context.Background()

	_, err := svc.Sign(ctx, "doc-1", "tenant-a", signReq(models.TenancyRoleTenant, models.PositionApprove))
	require.NoError(t, err)

	_, err = svc.Revise(ctx, repo.signatures[0].ID, "tenant-a", ReviseRequest{
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
		Artifact: []byte("rendered"),
	})
	require.NoError(t, err)
	_, err = svc.Revise(ctx, repo.signatures[0].ID, "tenant-b", ReviseRequest{
		Role:     models.TenancyRoleTenant,
		Position: models.PositionReject,
		Artifact: []byte("rendered"),
	})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureTotal.WithLabelValues("revise", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.signatureTotal.WithLabelValues("revise", "not_owner")))
}
