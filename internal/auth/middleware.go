package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hermes-platform/console-api/internal/models"
	"github.com/hermes-platform/console-api/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionMiddleware resolves the bearer token from the Authorization header
// into a session row and its user. Procedures behind it never run with a
// missing or expired session.
type SessionMiddleware struct {
	db *pgxpool.Pool
}

func NewSessionMiddleware(db *pgxpool.Pool) *SessionMiddleware {
	return &SessionMiddleware{db: db}
}

func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// API key middleware may already have resolved a user.
		if session.UserFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		var s models.Session
		var u models.User
		err := m.db.QueryRow(r.Context(),
			`SELECT s.id, s.user_id, s.token, s.expires_at, s.ip_address, s.user_agent, s.created_at,
			        u.id, u.email, u.name, u.avatar_url, u.workos_user_id, u.workos_org_id,
			        u.role, u.metadata, u.last_active_at, u.created_at, u.updated_at
			 FROM sessions s
			 JOIN users u ON u.id = s.user_id
			 WHERE s.token = $1`, token,
		).Scan(
			&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.IPAddress, &s.UserAgent, &s.CreatedAt,
			&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.WorkOSUserID, &u.WorkOSOrgID,
			&u.Role, &u.Metadata, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		if !s.ExpiresAt.After(time.Now()) {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		ctx := session.WithUser(r.Context(), &u)
		ctx = session.WithSession(ctx, &s)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
