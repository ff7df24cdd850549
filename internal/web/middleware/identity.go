package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/enrollment/internal/core"
)

// Identity reads the caller's session id from the X-Session-ID header, or
// the named cookie when the header is absent, and the administrator id from
// X-Actor-ID. Requests without a session id are rejected with 401.
// A malformed actor id is rejected with 400.
func Identity(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := SessionID(r, cookieName)
			if sid == "" {
				writeIdentityError(w, http.StatusUnauthorized, core.MapError(core.ErrMissingSession))
				return
			}

			var actor int64
			if raw := strings.TrimSpace(r.Header.Get("X-Actor-ID")); raw != "" {
				v, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || v <= 0 {
					writeIdentityError(w, http.StatusBadRequest, core.UserMessage{
						Message: "The actor id is not a valid number",
						Action:  "Sign in again",
						Code:    "IMP004",
					})
					return
				}
				actor = v
			}

			ctx := core.ContextWithIdentity(r.Context(), core.Identity{
				SessionID: sid,
				ActorID:   actor,
				IPAddress: r.RemoteAddr,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID returns the X-Session-ID header, falling back to the cookie.
func SessionID(r *http.Request, cookieName string) string {
	if sid := strings.TrimSpace(r.Header.Get("X-Session-ID")); sid != "" {
		return sid
	}
	if cookieName == "" {
		return ""
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

func writeIdentityError(w http.ResponseWriter, status int, msg core.UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
