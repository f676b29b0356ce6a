package httphandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stellar/go-stellar-sdk/support/http/httpdecode"
	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/photoproof/photoproof-backend/internal/data"
	"github.com/photoproof/photoproof-backend/internal/serve/httperror"
	"github.com/photoproof/photoproof-backend/internal/serve/validators"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const DefaultTokenTTL = 12 * time.Hour

type CredentialsValidator interface {
	ValidateCredentials(ctx context.Context, email, password string) (*data.User, error)
}

type TokenIssuer interface {
	GenerateToken(principal schema.Principal, expiresAt time.Time) (string, error)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) validate() *httperror.HTTPError {
	validator := validators.NewValidator()

	validator.Check(r.Email != "", "email", "email is required")
	validator.Check(r.Password != "", "password", "password is required")

	if validator.HasErrors() {
		return httperror.BadRequest("Request invalid", nil, validator.Errors)
	}

	return nil
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginHandler exchanges studio user credentials for a token bound to the user's studio.
type LoginHandler struct {
	Users       CredentialsValidator
	TokenIssuer TokenIssuer
	TokenTTL    time.Duration
	now         func() time.Time
}

func (h LoginHandler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody LoginRequest
	if err := httpdecode.DecodeJSON(req, &reqBody); err != nil {
		err = fmt.Errorf("decoding the request body: %w", err)
		log.Ctx(ctx).Error(err)
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}
	reqBody.Email = strings.ToLower(strings.TrimSpace(reqBody.Email))

	if err := reqBody.validate(); err != nil {
		err.Render(rw)
		return
	}

	user, err := h.Users.ValidateCredentials(ctx, reqBody.Email, reqBody.Password)
	if errors.Is(err, data.ErrInvalidCredentials) {
		httperror.Unauthorized("Incorrect email or password", err, nil).WithErrorCode(httperror.Code401_0).Render(rw)
		return
	} else if err != nil {
		httperror.InternalError(ctx, "Cannot authenticate user", err, nil).Render(rw)
		return
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	expiresAt := now().Add(ttl).UTC()

	token, err := h.TokenIssuer.GenerateToken(user.Principal(), expiresAt)
	if err != nil {
		httperror.InternalError(ctx, "Cannot issue token", err, nil).Render(rw)
		return
	}

	log.Ctx(ctx).Infof("[UserLogin] user %s of studio %s logged in", user.ID, user.StudioID)
	httpjson.RenderStatus(rw, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt}, httpjson.JSON)
}
