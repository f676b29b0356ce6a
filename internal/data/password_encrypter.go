package data

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = fmt.Errorf("password should have at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password should have at most %d characters", MaxPasswordLength)
)

type PasswordEncrypter interface {
	Encrypt(ctx context.Context, password string) (string, error)
	ComparePassword(ctx context.Context, encryptedPassword, password string) (bool, error)
}

// BcryptPasswordEncrypter hashes passwords with bcrypt at the given cost.
type BcryptPasswordEncrypter struct {
	cost int
}

var _ PasswordEncrypter = (*BcryptPasswordEncrypter)(nil)

func NewBcryptPasswordEncrypter(cost int) *BcryptPasswordEncrypter {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordEncrypter{cost: cost}
}

func (e *BcryptPasswordEncrypter) Encrypt(_ context.Context, password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	encryptedPassword, err := bcrypt.GenerateFromPassword([]byte(password), e.cost)
	if err != nil {
		return "", fmt.Errorf("encrypting password: %w", err)
	}
	return string(encryptedPassword), nil
}

func (e *BcryptPasswordEncrypter) ComparePassword(_ context.Context, encryptedPassword, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encryptedPassword), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, fmt.Errorf("comparing encrypted password and password: %w", err)
	}
	return err == nil, nil
}
