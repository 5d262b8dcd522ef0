package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"developertok/internal/domain/account"
	errs "developertok/internal/errors"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

type AccountStorage interface {
	Create(ctx context.Context, acc account.Account) (account.Account, error)
	FindByEmail(ctx context.Context, email string) (account.Account, error)
	FindByID(ctx context.Context, id string) (account.Account, error)
	UpdateProgress(ctx context.Context, id string, patch account.ProgressPatch, now time.Time) (account.Account, error)
	TouchLastActive(ctx context.Context, id string, now time.Time) error
}

type TokenStorage interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthUsecaseHandler struct {
	accountStorage AccountStorage
	tokenStorage   TokenStorage
	tokens         *TokenManager
	bcryptCost     int
	log            *zap.SugaredLogger
	now            func() time.Time
}

func NewAuthUsecaseHandler(a AccountStorage, t TokenStorage, tokens *TokenManager, bcryptCost int, log *zap.SugaredLogger) *AuthUsecaseHandler {
	return &AuthUsecaseHandler{
		accountStorage: a,
		tokenStorage:   t,
		tokens:         tokens,
		bcryptCost:     bcryptCost,
		log:            log,
		now:            time.Now,
	}
}

// RegisterUser creates the account and returns a token for it.
func (a *AuthUsecaseHandler) RegisterUser(ctx context.Context, username, email, password string) (string, account.PublicAccount, error) {
	if len(password) > MaxPasswordBytes {
		return "", account.PublicAccount{}, errs.ErrPasswordTooLong
	}
	if _, err := a.accountStorage.FindByEmail(ctx, email); err == nil {
		return "", account.PublicAccount{}, errs.ErrDuplicateEmail
	} else if !errors.Is(err, errs.ErrUserNotFound) {
		return "", account.PublicAccount{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", account.PublicAccount{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := a.accountStorage.Create(ctx, account.NewAccount(username, email, string(hash), a.now()))
	if err != nil {
		return "", account.PublicAccount{}, err
	}

	token, err := a.tokens.Issue(created.ID)
	if err != nil {
		return "", account.PublicAccount{}, err
	}

	a.log.Infof("registered user %s (%s)", created.Username, created.ID)
	return token, created.Public(), nil
}

// LoginUser never tells the caller whether the email or the password was wrong.
func (a *AuthUsecaseHandler) LoginUser(ctx context.Context, email, password string) (string, account.PublicAccount, error) {
	acc, err := a.accountStorage.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return "", account.PublicAccount{}, errs.ErrInvalidCredentials
		}
		return "", account.PublicAccount{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", account.PublicAccount{}, errs.ErrInvalidCredentials
	}

	now := a.now()
	if err := a.accountStorage.TouchLastActive(ctx, acc.ID, now); err != nil {
		return "", account.PublicAccount{}, err
	}
	acc.Progress.LastActive = now

	token, err := a.tokens.Issue(acc.ID)
	if err != nil {
		return "", account.PublicAccount{}, err
	}
	return token, acc.Public(), nil
}

// Authenticate resolves a token to the account id it was issued for.
func (a *AuthUsecaseHandler) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errs.ErrTokenMissing
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return "", err
	}

	revoked, err := a.tokenStorage.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", errs.ErrInvalidToken
	}
	return claims.AccountID, nil
}

func (a *AuthUsecaseHandler) GetAccount(ctx context.Context, accountID string) (account.PublicAccount, error) {
	acc, err := a.accountStorage.FindByID(ctx, accountID)
	if err != nil {
		return account.PublicAccount{}, err
	}
	return acc.Public(), nil
}

func (a *AuthUsecaseHandler) UpdateProgress(ctx context.Context, accountID string, patch account.ProgressPatch) (account.PublicAccount, error) {
	if patch.Activity != nil && !patch.Activity.Kind.Valid() {
		return account.PublicAccount{}, errs.ErrInvalidActivity
	}
	acc, err := a.accountStorage.UpdateProgress(ctx, accountID, patch, a.now())
	if err != nil {
		return account.PublicAccount{}, err
	}
	return acc.Public(), nil
}

// LogoutUser revokes the token until its natural expiry.
func (a *AuthUsecaseHandler) LogoutUser(ctx context.Context, token string) error {
	if token == "" {
		return errs.ErrTokenMissing
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(a.now())
	return a.tokenStorage.Revoke(ctx, claims.ID, ttl)
}
