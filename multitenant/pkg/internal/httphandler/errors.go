package httphandler

import (
	"context"
	"errors"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/provisioning"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
	"github.com/photoproof/photoproof-backend/multitenant/pkg/verification"
)

func studioLookupError(ctx context.Context, err error) *httperror.HTTPError {
	switch {
	case errors.Is(err, tenant.ErrStudioNotFound):
		return httperror.NotFound("Studio not found", err, nil)
	case errors.Is(err, tenant.ErrEmptyUpdateStudio), errors.Is(err, tenant.ErrEmptyStudioName):
		return httperror.BadRequest(err.Error(), err, nil).WithErrorCode(httperror.Code400_0)
	default:
		return httperror.InternalError(ctx, "Cannot process studio", err, nil)
	}
}

// studioWriteError maps the conflicts and rejections of studio and binding creation to client errors.
func studioWriteError(ctx context.Context, msg string, err error) *httperror.HTTPError {
	switch {
	case errors.Is(err, tenant.ErrStudioNotFound):
		return httperror.NotFound("Studio not found", err, nil)
	case errors.Is(err, tenant.ErrDuplicateHostname):
		return httperror.Conflict("The hostname is already bound to a studio", err, nil).WithErrorCode(httperror.Code409_0)
	case errors.Is(err, tenant.ErrDuplicateSubdomain):
		return httperror.Conflict("The subdomain is already taken", err, nil).WithErrorCode(httperror.Code409_1)
	case errors.Is(err, tenant.ErrDuplicateEmail), errors.Is(err, provisioning.ErrOwnerAlreadyExists):
		return httperror.Conflict("The email is already in use", err, nil)
	case errors.Is(err, data.ErrFeatureNotEnabled):
		return httperror.UnprocessableEntity("The studio plan does not include custom domains", err, nil).WithErrorCode(httperror.Code422_0)
	case errors.Is(err, tenant.ErrInvalidHostname):
		return httperror.BadRequest("Invalid hostname", err, map[string]any{"hostname": err.Error()}).WithErrorCode(httperror.Code400_0)
	case errors.Is(err, tenant.ErrEmptyStudioName), errors.Is(err, data.ErrMissingInput),
		errors.Is(err, data.ErrPasswordTooShort), errors.Is(err, data.ErrPasswordTooLong):
		return httperror.BadRequest(err.Error(), err, nil).WithErrorCode(httperror.Code400_0)
	default:
		return httperror.InternalError(ctx, msg, err, nil)
	}
}

func bindingError(ctx context.Context, msg string, err error) *httperror.HTTPError {
	switch {
	case errors.Is(err, tenant.ErrBindingNotFound):
		return httperror.NotFound("Domain not found", err, nil)
	case errors.Is(err, verification.ErrNoVerificationMethod):
		return httperror.BadRequest("Verification has not been started for this domain", err, nil)
	case errors.Is(err, verification.ErrManualVerification):
		return httperror.BadRequest("The domain was verified manually and has no challenge to check", err, nil)
	case errors.Is(err, tenant.ErrInvalidVerification):
		return httperror.BadRequest("Invalid verification method", err, nil)
	case errors.Is(err, verification.ErrBindingChanged):
		return httperror.Conflict("The domain was revoked while it was being verified, try again", err, nil)
	default:
		return httperror.InternalError(ctx, msg, err, nil)
	}
}
