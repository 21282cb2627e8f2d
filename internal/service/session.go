package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/vidstream/internal/hash"
	"github.com/Skotchmaster/vidstream/internal/logging"
	"github.com/Skotchmaster/vidstream/internal/models"
	"github.com/Skotchmaster/vidstream/internal/tokens"
)

// SessionService owns every trust decision: credential checks, token pair
// issuance and the single-refresh-token-per-user rotation protocol. The user
// record itself stays dumb data; all password hashing happens here, right
// before the write that needs it.
type SessionService struct {
	DB            *gorm.DB
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type LoginResult struct {
	TokenPair
	User *models.User
}

type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "session.register")

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if in.Username == "" || in.Email == "" || in.FullName == "" || in.Password == "" ||
		in.Avatar == "" || in.CoverImage == "" {
		return nil, ErrValidation
	}

	var existing models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR email = ?", in.Username, in.Email).
		First(&existing).Error
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register failed", "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: pwHash,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		l.Error("register failed", "error", err)
		return nil, err
	}

	l.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

// Login resolves the identifier against username or email, verifies the
// password and issues a fresh token pair, persisting the refresh token as the
// single valid one for this user.
func (s *SessionService) Login(ctx context.Context, username, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "session.login")

	ident := strings.ToLower(strings.TrimSpace(username))
	if ident == "" {
		ident = strings.ToLower(strings.TrimSpace(email))
	}
	if ident == "" || password == "" {
		return nil, ErrValidation
	}

	var user models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR email = ?", ident, ident).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		l.Error("login failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(&user)
	if err != nil {
		l.Error("login failed", "error", err)
		return nil, err
	}

	// Targeted update: only the refresh token column changes, the password
	// hash is never touched by a login.
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("refresh_token", pair.RefreshToken).Error; err != nil {
		l.Error("login failed", "error", err)
		return nil, err
	}

	user.RefreshToken = nil
	l.Info("user logged in", "user_id", user.ID)
	return &LoginResult{TokenPair: *pair, User: &user}, nil
}

// Logout clears the stored refresh token. It does not require a valid refresh
// token to be presented; knowing who you are (via the access token) is enough.
func (s *SessionService) Logout(ctx context.Context, userID uint) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	logging.FromContext(ctx).Info("user logged out", "svc", "session.logout", "user_id", userID)
	return nil
}

// Refresh rotates the token pair. The presented token must verify
// cryptographically and equal the stored one; the swap itself is a conditional
// update so two concurrent refreshes cannot both win.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "session.refresh")

	if presented == "" {
		return nil, ErrInvalidCredentials
	}

	claims, err := tokens.RefreshClaimsFromToken(presented, s.RefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		l.Error("refresh failed", "error", err)
		return nil, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		l.Warn("refresh rejected", "reason", "stale or replayed token", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(&user)
	if err != nil {
		l.Error("refresh failed", "error", err)
		return nil, err
	}

	// Compare-and-swap on the stored token. RowsAffected == 0 means another
	// request rotated it between our read and this write.
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", user.ID, presented).
		Update("refresh_token", pair.RefreshToken)
	if res.Error != nil {
		l.Error("refresh failed", "error", res.Error)
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		l.Warn("refresh rejected", "reason", "lost rotation race", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	user.RefreshToken = nil
	l.Info("tokens rotated", "user_id", user.ID)
	return &LoginResult{TokenPair: *pair, User: &user}, nil
}

func (s *SessionService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "session.change_password", "user_id", userID)

	if oldPassword == "" || newPassword == "" {
		return ErrValidation
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		l.Warn("password change rejected", "reason", "old password mismatch")
		return ErrInvalidCredentials
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", pwHash).Error; err != nil {
		return err
	}

	l.Info("password changed")
	return nil
}

func (s *SessionService) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.RefreshToken = nil
	return &user, nil
}

func (s *SessionService) UpdateAccount(ctx context.Context, userID uint, fullName, email string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" && email == "" {
		return nil, ErrValidation
	}

	updates := map[string]any{}
	if fullName != "" {
		updates["full_name"] = fullName
	}
	if email != "" {
		var other models.User
		err := s.DB.WithContext(ctx).
			Where("email = ? AND id <> ?", email, userID).
			First(&other).Error
		if err == nil {
			return nil, ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		updates["email"] = email
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.CurrentUser(ctx, userID)
}

// UpdateImage sets the avatar or cover image URL. column is trusted caller
// input, never user input.
func (s *SessionService) UpdateImage(ctx context.Context, userID uint, column, url string) (*models.User, error) {
	if url == "" {
		return nil, ErrValidation
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update(column, url)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.CurrentUser(ctx, userID)
}

func (s *SessionService) issuePair(user *models.User) (*TokenPair, error) {
	access, accessExp, err := tokens.SignAccessToken(user, s.AccessSecret, s.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tokens.SignRefreshToken(user.ID, s.RefreshSecret, s.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}
