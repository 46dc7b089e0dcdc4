package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/hermes-platform/console-api/pkg/token"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIKeyMiddleware authenticates programmatic callers via the configured
// header. Requests without a key pass through untouched so the session
// middleware can take over.
type APIKeyMiddleware struct {
	db         *pgxpool.Pool
	headerName string
}

func NewAPIKeyMiddleware(db *pgxpool.Pool, headerName string) *APIKeyMiddleware {
	return &APIKeyMiddleware{db: db, headerName: headerName}
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		hash := token.HashAPIKey(key)

		var ak models.APIKey
		var scopesJSON json.RawMessage
		err := m.db.QueryRow(r.Context(),
			`SELECT id, user_id, workspace_id, name, key_hash, key_prefix, scopes, last_used_at, expires_at, created_at
			 FROM api_keys WHERE key_hash = $1`, hash,
		).Scan(&ak.ID, &ak.UserID, &ak.WorkspaceID, &ak.Name, &ak.KeyHash, &ak.KeyPrefix, &scopesJSON, &ak.LastUsedAt, &ak.ExpiresAt, &ak.CreatedAt)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		if err := json.Unmarshal(scopesJSON, &ak.Scopes); err != nil {
			writeError(w, http.StatusInternalServerError, "invalid scopes")
			return
		}

		if ak.ExpiresAt != nil && ak.ExpiresAt.Before(time.Now()) {
			writeError(w, http.StatusUnauthorized, "API key expired")
			return
		}

		var u models.User
		err = m.db.QueryRow(r.Context(),
			`SELECT id, email, name, avatar_url, workos_user_id, workos_org_id, role, metadata, last_active_at, created_at, updated_at
			 FROM users WHERE id = $1`, ak.UserID,
		).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.WorkOSUserID, &u.WorkOSOrgID, &u.Role, &u.Metadata, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}

		// Update last used out of band
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.db.Exec(ctx, "UPDATE api_keys SET last_used_at = $1 WHERE id = $2", time.Now(), ak.ID)
		}()

		next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), &u)))
	})
}
