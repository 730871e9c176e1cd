package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/mailer"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Mock ResetTokenStore ──

type memoryTokenStore struct {
	tokens map[string]uint
	last   string
	ttl    time.Duration
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string]uint)}
}

func (m *memoryTokenStore) Save(_ context.Context, token string, userID uint, ttl time.Duration) error {
	m.tokens[token] = userID
	m.last = token
	m.ttl = ttl
	return nil
}

func (m *memoryTokenStore) Consume(_ context.Context, token string) (uint, error) {
	id, ok := m.tokens[token]
	if !ok {
		return 0, repository.ErrResetTokenNotFound
	}
	delete(m.tokens, token)
	return id, nil
}

// ── Mock Mailer ──

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type authFixture struct {
	*fixture
	auth   *AuthService
	tokens *memoryTokenStore
	mail   *recordingMailer
	cfg    *config.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := newFixture(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Mail: config.MailConfig{
			ResetURL: "http://localhost:3000/reset-password/",
			ResetTTL: 10 * time.Minute,
		},
	}
	tokens := newMemoryTokenStore()
	mail := &recordingMailer{}
	auth := NewAuthService(f.userRepo, tokens, mail, cfg)
	auth.Now = f.clock.Now
	return &authFixture{fixture: f, auth: auth, tokens: tokens, mail: mail, cfg: cfg}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, token, err := f.auth.Register(ctx, RegisterInput{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     " Grace@Example.com ",
		Password:  "cobol123",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Student, user.Role)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.True(t, user.IsActive)

	claims, err := util.ParseJWT(token, f.cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = f.auth.Register(ctx, RegisterInput{
		FirstName: "Grace",
		LastName:  "Again",
		Email:     "GRACE@example.com",
		Password:  "cobol123",
	})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, _, err = f.auth.Register(ctx, RegisterInput{
		FirstName: "Eve",
		LastName:  "Root",
		Email:     "eve@example.com",
		Password:  "cobol123",
		Role:      string(model.Admin),
	})
	assert.ErrorIs(t, err, util.ErrInvalidRole)

	lecturer, _, err := f.auth.Register(ctx, RegisterInput{
		FirstName: "Alan",
		LastName:  "Turing",
		Email:     "alan@example.com",
		Password:  "enigma99",
		Role:      string(model.Instructor),
	})
	require.NoError(t, err)
	assert.Equal(t, model.Instructor, lecturer.Role)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, token, err := f.auth.Login(ctx, "STUDENT@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user.LastLogin)
	assert.True(t, f.clock.T.Equal(*user.LastLogin))

	_, _, err = f.auth.Login(ctx, f.student.Email, "wrong-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.student.ID).Update("is_active", false).Error)
	_, _, err = f.auth.Login(ctx, f.student.Email, "password123")
	assert.ErrorIs(t, err, util.ErrAccountDeactivated)
}

func TestUpdateDetails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	bio := "Learning Go"
	name := " Sam "
	user, err := f.auth.UpdateDetails(ctx, f.student.ID, UpdateDetailsInput{FirstName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.FirstName)
	assert.Equal(t, "Learning Go", user.Bio)
	assert.Equal(t, f.student.Email, user.Email)

	taken := strings.ToUpper(f.instructor.Email)
	_, err = f.auth.UpdateDetails(ctx, f.student.ID, UpdateDetailsInput{Email: &taken})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestUpdatePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := f.auth.UpdatePassword(ctx, f.student.ID, "not-it", "newpass1")
	assert.ErrorIs(t, err, util.ErrIncorrectPassword)

	_, token, err := f.auth.UpdatePassword(ctx, f.student.ID, "password123", "newpass1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = f.auth.Login(ctx, f.student.Email, "password123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = f.auth.Login(ctx, f.student.Email, "newpass1")
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.auth.ForgotPassword(ctx, "missing@example.com")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
	assert.Empty(t, f.mail.sent)

	require.NoError(t, f.auth.ForgotPassword(ctx, f.student.Email))
	require.Len(t, f.mail.sent, 1)
	token := f.tokens.last
	require.NotEmpty(t, token)
	assert.Equal(t, 10*time.Minute, f.tokens.ttl)
	assert.Equal(t, f.student.Email, f.mail.sent[0].ToEmail)
	assert.Contains(t, f.mail.sent[0].Text, f.cfg.Mail.ResetURL+token)

	user, jwtToken, err := f.auth.ResetPassword(ctx, token, "brandnew1")
	require.NoError(t, err)
	assert.Equal(t, f.student.ID, user.ID)
	assert.NotEmpty(t, jwtToken)

	_, _, err = f.auth.Login(ctx, f.student.Email, "brandnew1")
	assert.NoError(t, err)

	// 令牌只能使用一次
	_, _, err = f.auth.ResetPassword(ctx, token, "another1")
	assert.ErrorIs(t, err, util.ErrInvalidResetToken)
}

func TestForgotPassword_MailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.mail.err = errors.New("smtp down")

	err := f.auth.ForgotPassword(context.Background(), f.student.Email)
	assert.Error(t, err)
	assert.Equal(t, util.KindInternal, util.KindOf(err))
}
