package validations

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainVerification "github.com/truthlens/truthlens/domains/verification"
	pkgError "github.com/truthlens/truthlens/pkg/error"
)

const maxClaimLength = 8000

// ValidateVerifyRequest rejects only what can never be verified: a claim
// with no text at all, an unknown claim kind, or an absurdly long input.
func ValidateVerifyRequest(ctx context.Context, request domainVerification.VerifyRequest) error {
	trimmed := strings.TrimSpace(request.Claim)
	if trimmed == "" {
		return pkgError.ValidationError("claim text is required")
	}

	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Claim, validation.Required, validation.Length(1, maxClaimLength)),
		validation.Field(&request.Kind, validation.In(
			domainVerification.ClaimKind(""),
			domainVerification.ClaimText,
			domainVerification.ClaimURL,
			domainVerification.ClaimMedia,
		)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
