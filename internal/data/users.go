package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/photoproof/photoproof-backend/db"
	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a studio account. Every user belongs to exactly one studio.
type User struct {
	ID           string          `json:"id" db:"id"`
	StudioID     string          `json:"studio_id" db:"studio_id"`
	Email        string          `json:"email" db:"email"`
	FirstName    string          `json:"first_name" db:"first_name"`
	LastName     string          `json:"last_name" db:"last_name"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Role         schema.UserRole `json:"role" db:"role"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

func (u User) Principal() schema.Principal {
	return schema.Principal{UserID: u.ID, StudioID: u.StudioID, Role: u.Role}
}

type UserInsert struct {
	StudioID  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      schema.UserRole
}

func (ui *UserInsert) Validate() error {
	if ui.StudioID == "" {
		return fmt.Errorf("%w: studio_id", ErrMissingInput)
	}
	ui.Email = strings.ToLower(strings.TrimSpace(ui.Email))
	if err := utils.ValidateEmail(ui.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if ui.Password == "" {
		return fmt.Errorf("%w: password", ErrMissingInput)
	}
	if ui.Role == "" {
		ui.Role = schema.StudioOwnerRole
	}
	if ui.Role != schema.StudioOwnerRole && ui.Role != schema.StudioMemberRole {
		return fmt.Errorf("invalid role %q", ui.Role)
	}
	return nil
}

const userColumns = "id, studio_id, email, first_name, last_name, password_hash, role, is_active, created_at, updated_at"

type UserModel struct {
	dbConnectionPool  db.DBConnectionPool
	passwordEncrypter PasswordEncrypter
}

func NewUserModel(dbConnectionPool db.DBConnectionPool, passwordEncrypter PasswordEncrypter) *UserModel {
	if passwordEncrypter == nil {
		passwordEncrypter = NewBcryptPasswordEncrypter(0)
	}
	return &UserModel{dbConnectionPool: dbConnectionPool, passwordEncrypter: passwordEncrypter}
}

// Insert creates a user with a hashed password using the given executer, so it can join the studio onboarding
// transaction.
func (m *UserModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert UserInsert) (*User, error) {
	if err := insert.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := m.passwordEncrypter.Encrypt(ctx, insert.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO studio_users (studio_id, email, first_name, last_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, userColumns)

	var user User
	err = sqlExec.GetContext(ctx, &user, query, insert.StudioID, insert.Email, insert.FirstName, insert.LastName, passwordHash, insert.Role)
	if err != nil {
		if constraint, ok := db.UniqueViolationConstraint(err); ok && constraint == "idx_studio_users_email" {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting user %s: %w", insert.Email, err)
	}
	return &user, nil
}

func (m *UserModel) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM studio_users WHERE email = $1`, userColumns)

	var user User
	err := m.dbConnectionPool.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	} else if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &user, nil
}

func (m *UserModel) GetByStudioID(ctx context.Context, studioID string) ([]User, error) {
	query := fmt.Sprintf(`SELECT %s FROM studio_users WHERE studio_id = $1 ORDER BY created_at, id`, userColumns)

	users := []User{}
	if err := m.dbConnectionPool.SelectContext(ctx, &users, query, studioID); err != nil {
		return nil, fmt.Errorf("listing users of studio %s: %w", studioID, err)
	}
	return users, nil
}

// ValidateCredentials returns the active user matching the email and password, or ErrInvalidCredentials.
func (m *UserModel) ValidateCredentials(ctx context.Context, email, password string) (*User, error) {
	user, err := m.GetByEmail(ctx, email)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	matches, err := m.passwordEncrypter.ComparePassword(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("comparing password: %w", err)
	}
	if !matches || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
