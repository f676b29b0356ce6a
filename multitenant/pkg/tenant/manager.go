package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const (
	studioColumns  = "id, name, email, phone, subdomain, plan, is_active, created_at, updated_at, deleted_at"
	bindingColumns = "id, hostname, studio_id, is_primary, status, verification_method, verification_token, verified_at, created_at, updated_at"

	verificationTokenLength = 32
)

// Manager is the Postgres implementation of Store.
type Manager struct {
	db             db.DBConnectionPool
	platformDomain string
}

var _ Store = (*Manager)(nil)

type Option func(m *Manager)

func NewManager(opts ...Option) *Manager {
	m := Manager{}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

func WithDatabase(dbConnectionPool db.DBConnectionPool) Option {
	return func(m *Manager) {
		m.db = dbConnectionPool
	}
}

// WithPlatformDomain sets the domain under which studios are addressed by subdomain label. Custom domains can never be
// claimed under it.
func WithPlatformDomain(platformDomain string) Option {
	return func(m *Manager) {
		m.platformDomain = utils.NormalizeHost(platformDomain)
	}
}

func (m *Manager) FindVerifiedCustomDomain(ctx context.Context, host string) (*schema.DomainBinding, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM studio_domains
		WHERE hostname = $1 AND status = $2
		ORDER BY id
		LIMIT 1
	`, bindingColumns)

	var binding schema.DomainBinding
	err := m.db.GetContext(ctx, &binding, query, host, schema.VerifiedBindingStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("finding verified binding for host %q: %w", host, err)
	}
	return &binding, nil
}

func (m *Manager) FindStudioBySubdomainLabel(ctx context.Context, label string) (*schema.Studio, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM studios
		WHERE subdomain = $1 AND is_active AND deleted_at IS NULL
		ORDER BY id
		LIMIT 1
	`, studioColumns)

	var studio schema.Studio
	err := m.db.GetContext(ctx, &studio, query, label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("finding studio by subdomain %q: %w", label, err)
	}
	return &studio, nil
}

func (m *Manager) FindActiveStudioByID(ctx context.Context, id string) (*schema.Studio, error) {
	studio, err := m.GetStudio(ctx, id)
	if errors.Is(err, ErrStudioNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if !studio.IsActive {
		return nil, nil
	}
	return studio, nil
}

func (m *Manager) CreateStudio(ctx context.Context, insert StudioInsert) (*schema.Studio, error) {
	return m.InsertStudio(ctx, m.db, insert)
}

// InsertStudio creates a studio using the given executer, so it can take part in a larger transaction.
func (m *Manager) InsertStudio(ctx context.Context, sqlExec db.SQLExecuter, insert StudioInsert) (*schema.Studio, error) {
	if err := insert.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO studios (name, email, phone, subdomain, plan)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, studioColumns)

	var studio schema.Studio
	err := sqlExec.GetContext(ctx, &studio, query, insert.Name, insert.Email, insert.Phone, insert.Subdomain, insert.Plan)
	if err != nil {
		return nil, mapConstraintError(err, fmt.Sprintf("inserting studio %q", insert.Name))
	}
	return &studio, nil
}

func (m *Manager) GetStudio(ctx context.Context, id string) (*schema.Studio, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStudioNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM studios WHERE id = $1 AND deleted_at IS NULL`, studioColumns)

	var studio schema.Studio
	err := m.db.GetContext(ctx, &studio, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudioNotFound
	} else if err != nil {
		return nil, fmt.Errorf("getting studio %s: %w", id, err)
	}
	return &studio, nil
}

func (m *Manager) GetAllStudios(ctx context.Context, queryParams *QueryParams) ([]schema.Studio, error) {
	if queryParams == nil {
		queryParams = &QueryParams{}
	}

	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	switch queryParams.Status {
	case StatusFilterActive:
		conditions = append(conditions, "is_active")
	case StatusFilterInactive:
		conditions = append(conditions, "NOT is_active")
	}
	if queryParams.Query != "" {
		args = append(args, "%"+queryParams.Query+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%[1]d OR email ILIKE $%[1]d OR subdomain ILIKE $%[1]d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM studios WHERE %s ORDER BY created_at DESC, id`, studioColumns, strings.Join(conditions, " AND "))
	if queryParams.PageLimit > 0 {
		page := max(queryParams.Page, 1)
		args = append(args, queryParams.PageLimit, (page-1)*queryParams.PageLimit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	studios := []schema.Studio{}
	if err := m.db.SelectContext(ctx, &studios, query, args...); err != nil {
		return nil, fmt.Errorf("listing studios: %w", err)
	}
	return studios, nil
}

func (m *Manager) UpdateStudio(ctx context.Context, update StudioUpdate) (*schema.Studio, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(update.ID); err != nil {
		return nil, ErrStudioNotFound
	}

	query := fmt.Sprintf(`
		UPDATE studios SET
			name = COALESCE($2, name),
			phone = COALESCE($3, phone),
			plan = COALESCE($4, plan),
			is_active = COALESCE($5, is_active),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING %s
	`, studioColumns)

	var studio schema.Studio
	err := m.db.GetContext(ctx, &studio, query, update.ID, update.Name, update.Phone, update.Plan, update.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudioNotFound
	} else if err != nil {
		return nil, fmt.Errorf("updating studio %s: %w", update.ID, err)
	}
	return &studio, nil
}

func (m *Manager) SetStudioActive(ctx context.Context, id string, active bool) (*schema.Studio, error) {
	return m.UpdateStudio(ctx, StudioUpdate{ID: id, IsActive: &active})
}

func (m *Manager) CreateBinding(ctx context.Context, insert BindingInsert) (*schema.DomainBinding, error) {
	return db.RunInTransactionWithResult(ctx, m.db, nil, func(dbTx db.DBTransaction) (*schema.DomainBinding, error) {
		return m.InsertBinding(ctx, dbTx, insert)
	})
}

// InsertBinding creates an unverified binding with a fresh verification token. A primary binding demotes the
// studio's previous primary binding, so sqlExec should be a transaction.
func (m *Manager) InsertBinding(ctx context.Context, sqlExec db.SQLExecuter, insert BindingInsert) (*schema.DomainBinding, error) {
	host, err := validateCustomHostname(insert.Hostname, m.platformDomain)
	if err != nil {
		return nil, err
	}
	if _, err = uuid.Parse(insert.StudioID); err != nil {
		return nil, ErrStudioNotFound
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	if insert.IsPrimary {
		const demoteQuery = `UPDATE studio_domains SET is_primary = false, updated_at = NOW() WHERE studio_id = $1 AND is_primary`
		if _, err = sqlExec.ExecContext(ctx, demoteQuery, insert.StudioID); err != nil {
			return nil, fmt.Errorf("demoting primary binding of studio %s: %w", insert.StudioID, err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO studio_domains (hostname, studio_id, is_primary, verification_token)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, bindingColumns)

	var binding schema.DomainBinding
	err = sqlExec.GetContext(ctx, &binding, query, host, insert.StudioID, insert.IsPrimary, token)
	if err != nil {
		return nil, mapConstraintError(err, fmt.Sprintf("inserting binding %q", host))
	}
	return &binding, nil
}

func (m *Manager) GetBinding(ctx context.Context, id string) (*schema.DomainBinding, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBindingNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM studio_domains WHERE id = $1`, bindingColumns)

	var binding schema.DomainBinding
	err := m.db.GetContext(ctx, &binding, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	} else if err != nil {
		return nil, fmt.Errorf("getting binding %s: %w", id, err)
	}
	return &binding, nil
}

func (m *Manager) GetStudioBindings(ctx context.Context, studioID string) ([]schema.DomainBinding, error) {
	if _, err := uuid.Parse(studioID); err != nil {
		return nil, ErrStudioNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM studio_domains WHERE studio_id = $1 ORDER BY is_primary DESC, created_at, id`, bindingColumns)

	bindings := []schema.DomainBinding{}
	if err := m.db.SelectContext(ctx, &bindings, query, studioID); err != nil {
		return nil, fmt.Errorf("listing bindings of studio %s: %w", studioID, err)
	}
	return bindings, nil
}

// GetPendingBindings returns unverified bindings whose owners started a challenge, ordered by ID and starting after
// afterID. An empty afterID starts from the first binding.
func (m *Manager) GetPendingBindings(ctx context.Context, afterID string, limit int) ([]schema.DomainBinding, error) {
	args := []any{
		schema.UnverifiedBindingStatus,
		schema.DNSTXTVerificationMethod, schema.DNSCNAMEVerificationMethod, schema.FileVerificationMethod,
		limit,
	}
	cursorClause := ""
	if afterID != "" {
		if _, err := uuid.Parse(afterID); err != nil {
			return nil, fmt.Errorf("invalid pending bindings cursor %q: %w", afterID, err)
		}
		args = append(args, afterID)
		cursorClause = "AND id > $6"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM studio_domains
		WHERE status = $1 AND verification_method IN ($2, $3, $4) %s
		ORDER BY id
		LIMIT $5
	`, bindingColumns, cursorClause)

	bindings := []schema.DomainBinding{}
	err := m.db.SelectContext(ctx, &bindings, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pending bindings: %w", err)
	}
	return bindings, nil
}

// SetBindingVerificationMethod records the challenge method chosen for an unverified binding. Verified bindings are
// returned unchanged.
func (m *Manager) SetBindingVerificationMethod(ctx context.Context, id string, method schema.VerificationMethod) (*schema.DomainBinding, error) {
	if !method.IsChallengeMethod() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerification, method)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBindingNotFound
	}

	query := fmt.Sprintf(`
		UPDATE studio_domains SET verification_method = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING %s
	`, bindingColumns)

	var binding schema.DomainBinding
	err := m.db.GetContext(ctx, &binding, query, id, method, schema.UnverifiedBindingStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return m.GetBinding(ctx, id)
	} else if err != nil {
		return nil, fmt.Errorf("setting verification method of binding %s: %w", id, err)
	}
	return &binding, nil
}

// SetBindingVerified transitions an unverified binding to verified when its token is still the one the proof was
// checked against. Bindings that are already verified keep their original method and timestamp, and bindings whose
// token was rotated are returned unverified.
func (m *Manager) SetBindingVerified(ctx context.Context, id, token string, method schema.VerificationMethod, verifiedAt time.Time) (*schema.DomainBinding, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerification, method)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBindingNotFound
	}

	query := fmt.Sprintf(`
		UPDATE studio_domains SET status = $2, verification_method = $3, verified_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5 AND verification_token = $6
		RETURNING %s
	`, bindingColumns)

	var binding schema.DomainBinding
	err := m.db.GetContext(ctx, &binding, query, id, schema.VerifiedBindingStatus, method, verifiedAt, schema.UnverifiedBindingStatus, token)
	if errors.Is(err, sql.ErrNoRows) {
		return m.GetBinding(ctx, id)
	} else if err != nil {
		return nil, fmt.Errorf("verifying binding %s: %w", id, err)
	}
	return &binding, nil
}

// RevokeBinding un-verifies a binding and rotates its token, so a proof that is still published cannot verify it again.
func (m *Manager) RevokeBinding(ctx context.Context, id string) (*schema.DomainBinding, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBindingNotFound
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE studio_domains
		SET status = $2, verification_method = NULL, verified_at = NULL, verification_token = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, bindingColumns)

	var binding schema.DomainBinding
	err = m.db.GetContext(ctx, &binding, query, id, schema.UnverifiedBindingStatus, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	} else if err != nil {
		return nil, fmt.Errorf("revoking binding %s: %w", id, err)
	}
	return &binding, nil
}

func (m *Manager) DeleteBinding(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrBindingNotFound
	}

	result, err := m.db.ExecContext(ctx, `DELETE FROM studio_domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting binding %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected when deleting binding %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return ErrBindingNotFound
	}
	return nil
}

// IsHostnameAvailable reports whether host is free across both binding hostnames and platform subdomains.
func (m *Manager) IsHostnameAvailable(ctx context.Context, host string) (bool, error) {
	host = utils.NormalizeHost(host)
	if host == "" {
		return false, ErrInvalidHostname
	}

	if utils.IsSameOrSubdomainOf(host, m.platformDomain) {
		label, isStudioHost := platformSubdomainLabel(host, m.platformDomain)
		if !isStudioHost {
			return false, nil
		}
		var taken bool
		if err := m.db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM studios WHERE subdomain = $1)`, label); err != nil {
			return false, fmt.Errorf("checking subdomain %q: %w", label, err)
		}
		return !taken, nil
	}

	var taken bool
	if err := m.db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM studio_domains WHERE hostname = $1)`, host); err != nil {
		return false, fmt.Errorf("checking hostname %q: %w", host, err)
	}
	return !taken, nil
}

func validateCustomHostname(hostname, platformDomain string) (string, error) {
	host := utils.NormalizeHost(hostname)
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHostname, hostname)
	}
	if err := utils.ValidateCustomDomain(host, platformDomain); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidHostname, err)
	}
	return host, nil
}

// platformSubdomainLabel returns the label of a host of the form <label>.<platformDomain>. The platform domain itself
// and deeper names are not studio hosts, and neither are reserved labels.
func platformSubdomainLabel(host, platformDomain string) (string, bool) {
	label, found := strings.CutSuffix(host, "."+platformDomain)
	if !found || label == "" || strings.Contains(label, ".") || isReservedSubdomain(label) {
		return "", false
	}
	return label, true
}

func newVerificationToken() (string, error) {
	token, err := utils.RandomString(verificationTokenLength, utils.LowerAlphaNumBytes)
	if err != nil {
		return "", fmt.Errorf("generating verification token: %w", err)
	}
	return token, nil
}

func mapConstraintError(err error, action string) error {
	if constraint, ok := db.UniqueViolationConstraint(err); ok {
		switch constraint {
		case "idx_studios_subdomain":
			return ErrDuplicateSubdomain
		case "idx_studios_email":
			return ErrDuplicateEmail
		case "idx_studio_domains_hostname":
			return ErrDuplicateHostname
		}
	}
	if db.IsForeignKeyViolation(err) {
		return ErrStudioNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}
