package verification

import "context"

// Veracity is the judgement a provider gives for a claim.
type Veracity string

const (
	VeracityTrue          Veracity = "true"
	VeracityFalse         Veracity = "false"
	VeracityPartiallyTrue Veracity = "partially-true"
	VeracityUnverified    Veracity = "unverified"
)

// IsValid reports whether v is one of the known veracity values.
func (v Veracity) IsValid() bool {
	switch v {
	case VeracityTrue, VeracityFalse, VeracityPartiallyTrue, VeracityUnverified:
		return true
	}
	return false
}

// ClaimKind distinguishes what the user submitted for checking.
type ClaimKind string

const (
	ClaimText  ClaimKind = "text"
	ClaimURL   ClaimKind = "url"
	ClaimMedia ClaimKind = "media"
)

// Status models the lifecycle of a single verification request.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusVerifying Status = "verifying"
	StatusVerified  Status = "verified"
	StatusError     Status = "error"
)

// Source is a reference the model cited for its judgement.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Verdict is the structured outcome of a verification.
type Verdict struct {
	Veracity    Veracity `json:"veracity"`
	Confidence  int      `json:"confidence"` // clamped into [0,100]
	Explanation string   `json:"explanation"`
	Sources     []Source `json:"sources"` // never nil
	Provider    string   `json:"provider,omitempty"`
	Cached      bool     `json:"cached,omitempty"`
}

// Media carries an image attached to a media claim.
type Media struct {
	Data     []byte
	MimeType string
	FileName string
}

// VerifyRequest is what the UI submits for fact-checking.
type VerifyRequest struct {
	Claim   string    `json:"claim"`
	Kind    ClaimKind `json:"kind,omitempty"`
	Context string    `json:"context,omitempty"` // optional user-supplied context
	Media   *Media    `json:"-"`
}

// IVerificationUsecase is the facade the UI layer consumes.
// Verify always resolves with a renderable verdict unless the request
// itself is invalid (no claim text at all).
type IVerificationUsecase interface {
	Verify(ctx context.Context, request VerifyRequest) (Verdict, error)
	Status() Status
	Reset()
}
