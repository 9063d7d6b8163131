package twofactor

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidUsername       = "twofactor_invalid_username"
	TextCodeProviderMisconfigured = "twofactor_provider_misconfigured"
	TextCodeExternalAPI           = "twofactor_external_api_error"
	TextCodePersistence           = "twofactor_persistence_error"
	TextCodeChallengeToken        = "twofactor_invalid_challenge_token"
)

// ErrInvalidUsername is returned when the inner store does not know the user.
var ErrInvalidUsername = errors.New("invalid username", errors.CategoryNotFound).
	WithTextCode(TextCodeInvalidUsername).
	WithCode(errors.CodeNotFound)

// ErrProviderMisconfigured is returned when the provider credentials are
// missing or invalid. This is fatal at startup, not recoverable per request.
var ErrProviderMisconfigured = errors.New("invalid or empty provider settings", errors.CategoryValidation).
	WithTextCode(TextCodeProviderMisconfigured).
	WithCode(errors.CodeInternal)

// ErrExternalAPI is the base error for calls the remote provider rejected or
// failed. Use ExternalAPIError to carry the remote error code/message.
var ErrExternalAPI = errors.New("second factor provider call failed", errors.CategoryOperation).
	WithTextCode(TextCodeExternalAPI).
	WithCode(errors.CodeInternal)

// ErrChallengeTokenInvalid is returned for expired or malformed challenge
// reference tokens.
var ErrChallengeTokenInvalid = errors.New("invalid challenge token", errors.CategoryAuth).
	WithTextCode(TextCodeChallengeToken).
	WithCode(errors.CodeUnauthorized)

// ExternalAPIError builds an ErrExternalAPI carrying the remote error detail.
func ExternalAPIError(code, message string) *errors.Error {
	return errors.New("second factor provider call failed", errors.CategoryOperation).
		WithTextCode(TextCodeExternalAPI).
		WithCode(errors.CodeInternal).
		WithMetadata(map[string]any{
			"provider_code":    code,
			"provider_message": message,
		})
}

// WrapPersistence marks a durable-store write failure. These must surface to
// the caller of Upsert/Clear, never be swallowed.
func WrapPersistence(err error, msg string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, msg).
		WithTextCode(TextCodePersistence).
		WithCode(errors.CodeInternal)
}

// IsExternalAPIError reports whether err came from the remote provider.
func IsExternalAPIError(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeExternalAPI
	}
	return false
}

// IsPersistenceError reports whether err is a durable-store write failure.
func IsPersistenceError(err error) bool {
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodePersistence
	}
	return false
}
