package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coahub/app/models"
	"coahub/app/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenExpiry = 24 * time.Hour

var (
	errInvalidCredentials = validationError("Invalid credentials")
	errEmailInUse         = validationError("Email already in use")
	errUsernameTaken      = validationError("Username already taken")
)

// SignupInput is the payload accepted at signup.
type SignupInput struct {
	Username string      `json:"username" validate:"required,min=2,max=50"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=student teacher"`
}

// ProfileInput holds the optional fields of a profile update.
type ProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=2048"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Claims is the token payload.
type Claims struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles identities and bearer tokens
type AuthService struct {
	users  repositories.UserRepository
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewAuthService creates a new AuthService. A non-positive expiry falls back
// to 24 hours.
func NewAuthService(users repositories.UserRepository, secret string, expiry time.Duration) (*AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Signup creates an identity and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = models.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	logCtx := logrus.WithFields(logrus.Fields{"username": in.Username, "email": in.Email})

	if err := models.ValidateStruct(in); err != nil {
		return nil, invalid(err)
	}

	if err := s.checkAvailable(ctx, "", in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during signup")
		return nil, internalError(err)
	}

	user := &models.User{
		ID:           models.NewID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			// Lost a race with a concurrent signup; report which field.
			if err := s.checkAvailable(ctx, "", in.Username, in.Email); err != nil {
				return nil, err
			}
			return nil, errEmailInUse
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, internalError(err)
	}

	logCtx.WithField("user_id", user.ID).Info("User signed up")
	return s.result(user)
}

// Login verifies credentials. Every failure looks the same to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	logCtx := logrus.WithField("email", email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		logCtx.Warn("Login attempt failed: user not found")
		return nil, errInvalidCredentials
	}
	if err != nil {
		logCtx.WithError(err).Error("Login attempt failed: error finding user")
		return nil, internalError(err)
	}

	if !checkPassword(password, user.PasswordHash) {
		logCtx.Warn("Login attempt failed: invalid password")
		return nil, errInvalidCredentials
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in")
	return s.result(user)
}

// UpdateProfile applies the non-nil fields of in to the caller's identity.
func (s *AuthService) UpdateProfile(ctx context.Context, requester models.Principal, in ProfileInput) (*models.User, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, invalid(err)
	}

	user, err := s.users.GetByID(ctx, requester.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFoundError("User not found")
	}
	if err != nil {
		return nil, internalError(err)
	}

	username, email := user.Username, user.Email
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		email = models.NormalizeEmail(*in.Email)
	}
	if err := s.checkAvailable(ctx, user.ID, username, email); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if err := user.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errUsernameTaken
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to update profile")
		return nil, internalError(err)
	}
	return user.Public(), nil
}

// IssueToken signs a token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a bearer token and returns the caller it names.
func (s *AuthService) ParseToken(tokenString string) (models.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.Principal{}, &Error{Kind: ErrAuthorization, Message: "Invalid token", Err: err}
	}
	if claims.ID == "" || !claims.Role.Valid() {
		return models.Principal{}, newError(ErrAuthorization, "Invalid token")
	}
	return models.Principal{
		ID:       claims.ID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

func (s *AuthService) result(user *models.User) (*AuthResult, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to generate token")
		return nil, internalError(err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}

// checkAvailable rejects a username or email owned by someone other than
// selfID.
func (s *AuthService) checkAvailable(ctx context.Context, selfID, username, email string) error {
	if u, err := s.users.GetByEmail(ctx, email); err == nil && u.ID != selfID {
		return errEmailInUse
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return internalError(err)
	}
	if u, err := s.users.GetByUsername(ctx, username); err == nil && u.ID != selfID {
		return errUsernameTaken
	} else if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return internalError(err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
