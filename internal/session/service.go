package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/hermes-platform/console-api/internal/apperr"
	"github.com/hermes-platform/console-api/internal/database"
	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/pkg/token"
	"github.com/jackc/pgx/v5"
)

// Service owns the user/session lifecycle: sign-up, sign-in, sign-out,
// refresh, and the expired-session sweep. Passwords are accepted but not
// verified against any stored credential: identity is slated to move to
// WorkOS, and local passwords were never persisted. Sign-in therefore only
// proves the email exists.
type Service struct {
	db  database.DB
	ttl time.Duration
}

func NewService(db database.DB, ttl time.Duration) *Service {
	return &Service{db: db, ttl: ttl}
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ClientMeta carries request attribution stored on the session row.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func ValidateSignUp(req SignUpRequest) error {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperr.BadRequest("invalid email address")
	}
	if len(req.Name) < 2 {
		return apperr.BadRequest("name must be at least 2 characters")
	}
	if len(req.Password) < 8 {
		return apperr.BadRequest("password must be at least 8 characters")
	}
	return nil
}

// SignUp creates a user and issues a session. Duplicate email fails Conflict.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest, meta ClientMeta) (*AuthResult, error) {
	if err := ValidateSignUp(req); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("user already exists")
	}

	var u models.User
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, name)
		 VALUES ($1, $2)
		 RETURNING id, email, name, avatar_url, workos_user_id, workos_org_id, role, metadata, last_active_at, created_at, updated_at`,
		req.Email, req.Name,
	).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.WorkOSUserID, &u.WorkOSOrgID, &u.Role, &u.Metadata, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	token, err := s.createSession(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &u, Token: token}, nil
}

// SignIn issues a new session for an existing user and stamps last_active_at.
// An unknown email fails Unauthorized.
func (s *Service) SignIn(ctx context.Context, req SignInRequest, meta ClientMeta) (*AuthResult, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, name, avatar_url, workos_user_id, workos_org_id, role, metadata, last_active_at, created_at, updated_at
		 FROM users WHERE email = $1`, req.Email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.WorkOSUserID, &u.WorkOSOrgID, &u.Role, &u.Metadata, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	token, err := s.createSession(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, "UPDATE users SET last_active_at = $1 WHERE id = $2", time.Now(), u.ID); err != nil {
		return nil, fmt.Errorf("update last active: %w", err)
	}

	return &AuthResult{User: &u, Token: token}, nil
}

// SignOut deletes the session row for the token. Deleting an already-removed
// session is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE token = $1", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Refresh extends the session's expiry to now + TTL.
func (s *Service) Refresh(ctx context.Context, sessionID uuid.UUID) (time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)
	if _, err := s.db.Exec(ctx, "UPDATE sessions SET expires_at = $1 WHERE id = $2", expiresAt, sessionID); err != nil {
		return time.Time{}, fmt.Errorf("refresh session: %w", err)
	}
	return expiresAt, nil
}

// SweepExpired removes sessions past their expiry and returns the count.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE expires_at < now()")
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Service) createSession(ctx context.Context, userID uuid.UUID, meta ClientMeta) (string, error) {
	tok := token.Generate()
	expiresAt := time.Now().Add(s.ttl)

	var ip, ua *string
	if meta.IPAddress != "" {
		ip = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		ua = &meta.UserAgent
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO sessions (user_id, token, expires_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, tok, expiresAt, ip, ua,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return tok, nil
}
