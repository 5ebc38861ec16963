package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tech-arch1tect/authrelay/services/auth"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"github.com/tech-arch1tect/authrelay/services/refreshtoken"
	"github.com/tech-arch1tect/authrelay/services/users"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, user *users.User) error
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
}

type TokenStore interface {
	Generate(ctx context.Context, userID string, client refreshtoken.ClientInfo) (*refreshtoken.IssuedToken, error)
	Find(ctx context.Context, token string) (*refreshtoken.RefreshToken, error)
	Consume(ctx context.Context, tokenID string) error
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeByID(ctx context.Context, tokenID string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

type AccessTokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) error
}

// Recorder receives one observation per finished operation.
type Recorder interface {
	ObserveAuthOperation(operation, outcome string)
}

type Dependencies struct {
	Users     UserStore
	Tokens    TokenStore
	Access    AccessTokenIssuer
	Passwords PasswordHasher
	Validator auth.Validator
	Logger    *logging.Service
	Recorder  Recorder
	Timeout   time.Duration
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time

	refreshTokenID string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Client   refreshtoken.ClientInfo
}

type RegisterResult struct {
	User   *users.User
	Tokens TokenPair
}

type LoginInput struct {
	Email    string
	Password string
	Client   refreshtoken.ClientInfo
}

type LoginResult struct {
	Tokens TokenPair
	UserID string
}

type RefreshInput struct {
	RefreshToken string
	Client       refreshtoken.ClientInfo
}

// Manager owns the token lifecycle: registration, login, issuance and
// rotation of refresh tokens, and logout.
type Manager struct {
	users     UserStore
	tokens    TokenStore
	access    AccessTokenIssuer
	passwords PasswordHasher
	validator auth.Validator
	logger    *logging.Service
	recorder  Recorder
	timeout   time.Duration
	now       func() time.Time
}

const defaultOperationTimeout = 5 * time.Second

func NewManager(deps Dependencies) *Manager {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultOperationTimeout
	}
	return &Manager{
		users:     deps.Users,
		tokens:    deps.Tokens,
		access:    deps.Access,
		passwords: deps.Passwords,
		validator: deps.Validator,
		logger:    deps.Logger,
		recorder:  deps.Recorder,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (m *Manager) Register(ctx context.Context, input RegisterInput) (result *RegisterResult, err error) {
	defer m.observe("register", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = auth.NormalizeEmail(input.Email)

	check := m.validator.ValidateRegistration(auth.RegistrationInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if !check.Valid {
		return nil, validationError(check.Message(), check.FieldErrors)
	}

	existing, err := m.users.FindByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return nil, m.internal("register", err)
	}
	if existing != nil {
		m.logger.Warn("registration rejected: user already exists", zap.String("username", input.Username))
		return nil, conflictError("User already exists", nil)
	}

	hash, err := m.passwords.HashPassword(input.Password)
	if err != nil {
		return nil, m.internal("register", err)
	}

	user := &users.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateUser) {
			return nil, conflictError("User already exists", err)
		}
		return nil, m.internal("register", err)
	}

	m.logger.Info("user registered", zap.String("user_id", user.ID))

	pair, err := m.issue(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{User: user, Tokens: *pair}, nil
}

// Login never invalidates refresh tokens from earlier logins.
func (m *Manager) Login(ctx context.Context, input LoginInput) (result *LoginResult, err error) {
	defer m.observe("login", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	input.Email = auth.NormalizeEmail(input.Email)

	check := m.validator.ValidateLogin(auth.LoginInput{Email: input.Email, Password: input.Password})
	if !check.Valid {
		return nil, validationError(check.Message(), check.FieldErrors)
	}

	user, err := m.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, notFoundError("User not found", err)
		}
		return nil, m.internal("login", err)
	}

	if err := m.passwords.VerifyPassword(user.PasswordHash, input.Password); err != nil {
		m.logger.Warn("login rejected: invalid credentials", zap.String("user_id", user.ID))
		return nil, AuthenticationError("Invalid credentials", err)
	}

	pair, err := m.issue(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	m.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{Tokens: *pair, UserID: user.ID}, nil
}

// Refresh rotates a refresh token. The new pair is issued before the old
// record is consumed; if another caller consumed it first the new refresh
// token is revoked and the caller is rejected.
func (m *Manager) Refresh(ctx context.Context, input RefreshInput) (pair *TokenPair, err error) {
	defer m.observe("refresh", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token := strings.TrimSpace(input.RefreshToken)
	if token == "" {
		return nil, validationError("Refresh token missing", map[string]string{"refreshToken": "refresh token is required"})
	}

	record, err := m.tokens.Find(ctx, token)
	if err != nil {
		if errors.Is(err, refreshtoken.ErrRefreshTokenNotFound) {
			return nil, AuthenticationError("Invalid or expired refresh token", err)
		}
		return nil, m.internal("refresh", err)
	}

	if record.IsExpired(m.now()) {
		if err := m.tokens.RevokeByID(ctx, record.ID); err != nil {
			m.logger.Warn("failed to delete expired refresh token",
				zap.String("token_id", record.ID), zap.Error(err))
		}
		return nil, AuthenticationError("Invalid or expired refresh token", nil)
	}

	user, err := m.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			// tokens of a deleted account can never be redeemed
			if _, revokeErr := m.tokens.RevokeAllForUser(ctx, record.UserID); revokeErr != nil {
				m.logger.Warn("failed to revoke refresh tokens of deleted user",
					zap.String("user_id", record.UserID), zap.Error(revokeErr))
			}
			return nil, notFoundError("User not found", err)
		}
		return nil, m.internal("refresh", err)
	}

	pair, err = m.issue(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	if err := m.tokens.Consume(ctx, record.ID); err != nil {
		if errors.Is(err, refreshtoken.ErrRefreshTokenNotFound) {
			m.logger.Warn("refresh token already consumed, revoking replacement",
				zap.String("token_id", record.ID),
				zap.String("user_id", user.ID))
			if revokeErr := m.tokens.RevokeByID(ctx, pair.refreshTokenID); revokeErr != nil {
				m.logger.Error("failed to revoke replacement refresh token",
					zap.String("token_id", pair.refreshTokenID), zap.Error(revokeErr))
			}
			return nil, AuthenticationError("Invalid or expired refresh token", err)
		}

		// The old token stays redeemable until it expires.
		m.logger.Warn("failed to delete old refresh token during rotation",
			zap.String("token_id", record.ID), zap.Error(err))
	}

	m.logger.Info("refresh token rotated",
		zap.String("user_id", user.ID),
		zap.String("old_token_id", record.ID),
		zap.String("new_token_id", pair.refreshTokenID))
	return pair, nil
}

// Issue mints an access token and a persisted refresh token for user.
func (m *Manager) Issue(ctx context.Context, user *users.User, client refreshtoken.ClientInfo) (pair *TokenPair, err error) {
	defer m.observe("issue", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.issue(ctx, user, client)
}

func (m *Manager) issue(ctx context.Context, user *users.User, client refreshtoken.ClientInfo) (*TokenPair, error) {
	if user == nil || user.ID == "" {
		return nil, m.internal("issue", errors.New("cannot issue tokens without a user id"))
	}

	accessToken, accessExpiresAt, err := m.access.GenerateToken(user.ID)
	if err != nil {
		return nil, m.internal("issue", err)
	}

	issued, err := m.tokens.Generate(ctx, user.ID, client)
	if err != nil {
		return nil, m.internal("issue", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     issued.Token,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: issued.ExpiresAt,
		refreshTokenID:   issued.TokenID,
	}, nil
}

// Logout revokes a refresh token. Revoking an unknown token succeeds.
func (m *Manager) Logout(ctx context.Context, refreshToken string) (err error) {
	defer m.observe("logout", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return validationError("Refresh token missing", map[string]string{"refreshToken": "refresh token is required"})
	}

	existed, err := m.tokens.Revoke(ctx, token)
	if err != nil {
		return m.internal("logout", err)
	}

	m.logger.Info("refresh token revoked", zap.Bool("existed", existed))
	return nil
}

func (m *Manager) Me(ctx context.Context, userID string) (user *users.User, err error) {
	defer m.observe("me", &err)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user, err = m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, notFoundError("User not found", err)
		}
		return nil, m.internal("me", err)
	}
	return user, nil
}

func (m *Manager) internal(operation string, cause error) error {
	m.logger.Error("identity operation failed",
		zap.String("operation", operation),
		zap.Error(cause))
	return internalError(cause)
}

func (m *Manager) observe(operation string, err *error) {
	if m.recorder == nil {
		return
	}
	outcome := "success"
	if *err != nil {
		outcome = KindOf(*err).String()
	}
	m.recorder.ObserveAuthOperation(operation, outcome)
}
