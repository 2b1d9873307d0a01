package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"github.com/charabracket/charabracket/utils"
)

type stubUserRepo struct {
	repositories.UserRepository
	createFn     func(ctx context.Context, user *models.User) error
	getByEmailFn func(ctx context.Context, email string) (*models.User, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(&stubUserRepo{})

	cases := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "invalid email",
			input:   RegisterInput{Email: "not-an-email", Nickname: "Alice", Password: "opensesame"},
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "blank nickname",
			input:   RegisterInput{Email: "alice@example.com", Nickname: "   ", Password: "opensesame"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "alice@example.com", Nickname: "Alice", Password: "short"},
			wantErr: ErrPasswordTooShort,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := &stubUserRepo{
		createFn: func(_ context.Context, user *models.User) error {
			assert.Equal(t, "alice@example.com", user.Email)
			assert.Equal(t, "Alice", user.Nickname)
			assert.True(t, utils.CheckPasswordHash("correct horse", user.PasswordHash))
			user.ID = 7
			return nil
		},
	}
	svc := NewAuthService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.COM  ",
		Nickname: "  Alice  ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestRegisterConflicts(t *testing.T) {
	cases := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{name: "email taken", repoErr: repositories.ErrUserEmailConflict, wantErr: ErrUserEmailConflict},
		{name: "nickname taken", repoErr: repositories.ErrUserNicknameConflict, wantErr: ErrUserNicknameConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubUserRepo{
				createFn: func(_ context.Context, _ *models.User) error {
					return tc.repoErr
				},
			}
			svc := NewAuthService(repo)

			_, err := svc.Register(context.Background(), RegisterInput{
				Email:    "alice@example.com",
				Nickname: "Alice",
				Password: "opensesame",
			})
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("opensesame")
	require.NoError(t, err)

	stored := &models.User{
		ID:           3,
		Email:        "alice@example.com",
		Nickname:     "Alice",
		PasswordHash: hash,
	}

	repo := &stubUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email != stored.Email {
				return nil, repositories.ErrUserNotFound
			}
			u := *stored
			return &u, nil
		},
	}
	svc := NewAuthService(repo)

	t.Run("success normalizes email", func(t *testing.T) {
		user, err := svc.Login(context.Background(), LoginInput{Email: " ALICE@Example.com ", Password: "opensesame"})
		require.NoError(t, err)
		assert.Equal(t, 3, user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "guess"})
		require.ErrorIs(t, err, ErrAuthInvalidCredentials)
	})

	// Неизвестный email и неверный пароль неразличимы для клиента.
	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{Email: "bob@example.com", Password: "opensesame"})
		require.ErrorIs(t, err, ErrAuthInvalidCredentials)
	})
}
