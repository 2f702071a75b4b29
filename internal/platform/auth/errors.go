package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrMissingToken indicates no bearer token, or one too short to be real.
	ErrMissingToken = errors.New("missing or malformed bearer token")

	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrMaintenanceMode indicates the portal is closed for maintenance.
	ErrMaintenanceMode = errors.New("the portal is in maintenance mode, please try again later")

	// ErrSessionExpired indicates the session outlived the configured timeout.
	ErrSessionExpired = errors.New("your session has expired, please sign in again")

	// ErrPasswordExpired indicates the actor's password is older than allowed.
	ErrPasswordExpired = errors.New("your password has expired, please reset it")

	// ErrUnknownActor indicates the token subject has no admin account.
	ErrUnknownActor = errors.New("no admin account exists for this session")

	// ErrMFARequired indicates the operation needs a multi-factor session.
	ErrMFARequired = errors.New("multi-factor authentication is required for this operation")

	// ErrInsufficientRole indicates the actor's role is below the requirement.
	ErrInsufficientRole = errors.New("your role does not permit this operation")
)

// HTTPError maps an auth failure onto the status the caller should see.
// Unauthorized kinds require re-authentication; Forbidden kinds require a
// policy or role change.
func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrPasswordExpired),
		errors.Is(err, ErrUnknownActor):
		return echo.NewHTTPError(http.StatusUnauthorized, unwrapMessage(err))
	case errors.Is(err, ErrMaintenanceMode),
		errors.Is(err, ErrMFARequired),
		errors.Is(err, ErrInsufficientRole):
		return echo.NewHTTPError(http.StatusForbidden, unwrapMessage(err))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
	}
}

// unwrapMessage returns the sentinel text so internal detail added with %w
// (token parser errors, store errors) never reaches the client.
func unwrapMessage(err error) string {
	for _, sentinel := range []error{
		ErrMissingToken, ErrInvalidToken, ErrMaintenanceMode, ErrSessionExpired,
		ErrPasswordExpired, ErrUnknownActor, ErrMFARequired, ErrInsufficientRole,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
