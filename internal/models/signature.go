package models

import "time"

// SignaturePosition is the signer's stance on the document.
type SignaturePosition string

const (
	PositionApprove SignaturePosition = "APPROVE"
	PositionReject  SignaturePosition = "REJECT"
)

// Valid reports whether the position is a known value.
func (p SignaturePosition) Valid() bool {
	return p == PositionApprove || p == PositionReject
}

// Signature is a member's recorded position on a document. At most one row
// exists per (document, signer); revisions update the row in place.
// VisibilityVote is write-once and survives revisions untouched.
type Signature struct {
	ID         string            `db:"id" json:"id"`
	DocumentID string            `db:"document_id" json:"document_id"`
	SignerID   string            `db:"signer_id" json:"signer_id"`
	SignerName string            `db:"signer_name" json:"signer_name"`
	Role       TenancyRole       `db:"role" json:"role"`
	Position   SignaturePosition `db:"position" json:"position"`
	Artifact   []byte            `db:"artifact" json:"artifact"`
	UnitName   string            `db:"unit_name" json:"unit_name"`
	UnitFloor  string            `db:"unit_floor" json:"unit_floor"`

	VisibilityVote *bool `db:"visibility_vote" json:"visibility_vote,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VisibilityTally aggregates the visibility votes for one document.
// It is never persisted; derive it from a single read of the ledger.
type VisibilityTally struct {
	PublicVotes  int  `json:"public_votes"`
	PrivateVotes int  `json:"private_votes"`
	TotalSigners int  `json:"total_signers"`
	TotalVotes   int  `json:"total_votes"`
	IsPublic     bool `json:"is_public"`
}

// TallyOf folds a document's signatures into the visibility tally.
// A strict majority of votes cast opens the signatures; ties, including
// zero votes, stay private.
func TallyOf(signatures []Signature) VisibilityTally {
	tally := VisibilityTally{TotalSigners: len(signatures)}
	for _, sig := range signatures {
		if sig.VisibilityVote == nil {
			continue
		}
		if *sig.VisibilityVote {
			tally.PublicVotes++
		} else {
			tally.PrivateVotes++
		}
	}
	tally.TotalVotes = tally.PublicVotes + tally.PrivateVotes
	tally.IsPublic = tally.PublicVotes > tally.PrivateVotes
	return tally
}

// SignatureView is the outward projection of a signature. Masked rows keep
// who signed and in what role but drop the position, artifact, vote and the
// unit details.
type SignatureView struct {
	ID         string             `json:"id"`
	DocumentID string             `json:"document_id"`
	SignerID   string             `json:"signer_id"`
	SignerName string             `json:"signer_name"`
	Role       TenancyRole        `json:"role"`
	Position   *SignaturePosition `json:"position"`
	Artifact   []byte             `json:"artifact"`
	UnitName   string             `json:"unit_name"`
	UnitFloor  string             `json:"unit_floor,omitempty"`

	VisibilityVote *bool `json:"visibility_vote,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	Masked    bool      `json:"masked"`
}

// ProjectSignature redacts a signature for the given viewer. Admins and the
// signer always see the full record; everyone does while the tally is
// public; otherwise position and artifact are nulled and the unit snapshot
// collapses to a role-based label. Apply it to every row of a listing with
// the one tally computed from the same read of the ledger.
func ProjectSignature(sig Signature, tally VisibilityTally, viewerID string, viewerIsAdmin bool) SignatureView {
	view := SignatureView{
		ID:         sig.ID,
		DocumentID: sig.DocumentID,
		SignerID:   sig.SignerID,
		SignerName: sig.SignerName,
		Role:       sig.Role,
		CreatedAt:  sig.CreatedAt,
	}

	if viewerIsAdmin || viewerID == sig.SignerID || tally.IsPublic {
		position := sig.Position
		view.Position = &position
		view.Artifact = sig.Artifact
		view.UnitName = unitNameOrPlaceholder(sig)
		view.UnitFloor = sig.UnitFloor
		view.VisibilityVote = sig.VisibilityVote
		return view
	}

	view.UnitName = roleLabel(sig.Role)
	view.Masked = true
	return view
}

// unitNameOrPlaceholder degrades a stale or missing unit snapshot to a
// generic label instead of failing the listing.
func unitNameOrPlaceholder(sig Signature) string {
	if sig.UnitName == "" {
		return roleLabel(sig.Role)
	}
	return sig.UnitName
}

func roleLabel(role TenancyRole) string {
	if role == TenancyRoleLandlord {
		return "Landlord unit"
	}
	return "Tenant unit"
}

// SignatureListing bundles the projected rows with the tally they were
// masked against.
type SignatureListing struct {
	Signatures []SignatureView `json:"signatures"`
	Tally      VisibilityTally `json:"tally"`
}
