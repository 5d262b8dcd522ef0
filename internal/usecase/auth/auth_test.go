package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"developertok/internal/domain/account"
	errs "developertok/internal/errors"
	"developertok/internal/repository"
)

type failingTokenStorage struct{}

func (failingTokenStorage) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingTokenStorage) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestUsecase(t *testing.T) (*AuthUsecaseHandler, *repository.MemoryAccountStorage) {
	t.Helper()
	storage := repository.NewMemoryAccountStorage()
	uc := NewAuthUsecaseHandler(storage, repository.NewMemoryTokenStorage(),
		NewTokenManager("test-secret", 7*24*time.Hour), bcrypt.MinCost, zap.NewNop().Sugar())
	return uc, storage
}

func TestRegisterUser(t *testing.T) {
	uc, storage := newTestUsecase(t)
	ctx := context.Background()

	token, user, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, user.Progress.Level)
	require.Len(t, user.RecentActivity, 1)
	assert.Equal(t, account.WelcomeTitle, user.RecentActivity[0].Title)

	id, err := uc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	stored, err := storage.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123456")))
}

func TestRegisterUser_Duplicates(t *testing.T) {
	uc, storage := newTestUsecase(t)
	ctx := context.Background()

	_, _, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, _, err = uc.RegisterUser(ctx, "bob", "alice@x.com", "pw123456")
	assert.ErrorIs(t, err, errs.ErrDuplicateEmail)

	_, _, err = uc.RegisterUser(ctx, "alice", "bob@x.com", "pw123456")
	assert.ErrorIs(t, err, errs.ErrDuplicateUsername)

	assert.Equal(t, 1, storage.Len())
}

func TestRegisterUser_PasswordOverBcryptLimit(t *testing.T) {
	uc, storage := newTestUsecase(t)

	_, _, err := uc.RegisterUser(context.Background(), "alice", "alice@x.com", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, errs.ErrPasswordTooLong)
	assert.Equal(t, 0, storage.Len())
}

func TestLoginUser(t *testing.T) {
	uc, storage := newTestUsecase(t)
	ctx := context.Background()

	_, registered, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	loginAt := time.Now().Add(time.Hour)
	uc.now = func() time.Time { return loginAt }

	token, user, err := uc.LoginUser(ctx, "alice@x.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, loginAt, user.Progress.LastActive)

	id, err := uc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, id)

	stored, err := storage.FindByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.True(t, loginAt.Equal(stored.Progress.LastActive))
}

func TestLoginUser_WrongPasswordLeavesAccountUntouched(t *testing.T) {
	uc, storage := newTestUsecase(t)
	ctx := context.Background()

	_, registered, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)
	before, err := storage.FindByID(ctx, registered.ID)
	require.NoError(t, err)

	uc.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, _, err = uc.LoginUser(ctx, "alice@x.com", "wrong-password")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	after, err := storage.FindByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoginUser_UnknownEmailIsGeneric(t *testing.T) {
	uc, _ := newTestUsecase(t)

	_, _, err := uc.LoginUser(context.Background(), "ghost@x.com", "pw123456")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	_, err := uc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, errs.ErrTokenMissing)

	_, err = uc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestAuthenticate_TokenStoreFailureIsNotInvalidToken(t *testing.T) {
	uc, _ := newTestUsecase(t)
	uc.tokenStorage = failingTokenStorage{}

	token, err := uc.tokens.Issue("acc-1")
	require.NoError(t, err)

	_, err = uc.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrInvalidToken)
}

func TestLogoutUser(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	token, _, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, uc.LogoutUser(ctx, token))

	_, err = uc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	assert.ErrorIs(t, uc.LogoutUser(ctx, ""), errs.ErrTokenMissing)
}

func TestUpdateProgress(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	_, user, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	updated, err := uc.UpdateProgress(ctx, user.ID, account.ProgressPatch{TotalPoints: account.IntPtr(1200)})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Progress.Level)

	updated, err = uc.UpdateProgress(ctx, user.ID, account.ProgressPatch{CurrentStreak: account.IntPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Progress.LongestStreak)

	updated, err = uc.UpdateProgress(ctx, user.ID, account.ProgressPatch{CurrentStreak: account.IntPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Progress.CurrentStreak)
	assert.Equal(t, 5, updated.Progress.LongestStreak)
}

func TestUpdateProgress_ElevenActivities(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	_, user, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	var last account.PublicAccount
	for i := 1; i <= 11; i++ {
		last, err = uc.UpdateProgress(ctx, user.ID, account.ProgressPatch{Activity: &account.ActivityItem{
			Kind:  account.ActivityChallenge,
			Title: fmt.Sprintf("challenge %d", i),
		}})
		require.NoError(t, err)
	}

	require.Len(t, last.RecentActivity, account.MaxRecentActivity)
	for i, item := range last.RecentActivity {
		assert.Equal(t, fmt.Sprintf("challenge %d", 11-i), item.Title)
	}
}

func TestUpdateProgress_RejectsUnknownActivityKind(t *testing.T) {
	uc, _ := newTestUsecase(t)
	ctx := context.Background()

	_, user, err := uc.RegisterUser(ctx, "alice", "alice@x.com", "pw123456")
	require.NoError(t, err)

	_, err = uc.UpdateProgress(ctx, user.ID, account.ProgressPatch{Activity: &account.ActivityItem{Kind: "quiz", Title: "x"}})
	assert.ErrorIs(t, err, errs.ErrInvalidActivity)
}

func TestGetAccount_NotFound(t *testing.T) {
	uc, _ := newTestUsecase(t)

	_, err := uc.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrUserNotFound)
}
