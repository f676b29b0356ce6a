package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/photoproof/photoproof-backend/multitenant/pkg/tenant"
)

const (
	DefaultPage      = 1
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type StudioQueryValidator struct {
	*Validator
}

func NewStudioQueryValidator() *StudioQueryValidator {
	return &StudioQueryValidator{Validator: NewValidator()}
}

// ParseParametersFromRequest reads page, page_limit, status and q from the query string.
func (qv *StudioQueryValidator) ParseParametersFromRequest(r *http.Request) *tenant.QueryParams {
	query := r.URL.Query()

	page := qv.validateAndGetIntParams(r, "page", DefaultPage)
	qv.Check(page >= 1, "page", "parameter must be greater than or equal to 1")

	pageLimit := qv.validateAndGetIntParams(r, "page_limit", DefaultPageLimit)
	qv.Check(pageLimit >= 1 && pageLimit <= MaxPageLimit, "page_limit", "parameter must be between 1 and 100")

	status, err := tenant.ParseStatusFilter(strings.ToLower(strings.TrimSpace(query.Get("status"))))
	qv.CheckError(err, "status", "invalid status. valid values are 'active', 'inactive' and 'all'")

	if qv.HasErrors() {
		return nil
	}

	return &tenant.QueryParams{
		Query:     strings.TrimSpace(query.Get("q")),
		Status:    status,
		Page:      page,
		PageLimit: pageLimit,
	}
}

func (qv *StudioQueryValidator) validateAndGetIntParams(r *http.Request, param string, defaultValue int) int {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		qv.CheckError(err, param, "parameter must be an integer")
		return defaultValue
	}
	return intValue
}
