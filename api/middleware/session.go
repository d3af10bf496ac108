package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-session/api/responses"
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/pkg/auth"
	"github.com/angelmondragon/storefront-session/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-session/pkg/errors"
	"github.com/angelmondragon/storefront-session/pkg/logger"
)

// SessionHeader carries the signed session token in both directions.
const SessionHeader = "X-Session-Token"

type sessionLoader interface {
	Load(ctx context.Context, id string) (*session.Session, error)
}

// Session resolves the visitor's session from X-Session-Token. A missing,
// expired or forged token starts a new, empty session; the token for it is
// returned in the response header. Tokens past half their lifetime are
// reissued the same way.
func Session(cfg config.SessionConfig, loader sessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	now := time.Now
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := strings.TrimSpace(r.Header.Get(SessionHeader))

			sessionID := ""
			reissue := true
			if raw != "" {
				claims, err := auth.ParseSessionToken(cfg, raw)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "session.token_rejected")
					}
				} else {
					sessionID = claims.SessionID
					reissue = claims.ExpiresAt != nil && claims.ExpiresAt.Sub(now()) < cfg.TokenTTL/2
				}
			}
			if sessionID == "" {
				sessionID = auth.NewSessionID()
			}

			if reissue {
				token, err := auth.MintSessionToken(cfg, now(), sessionID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session token"))
					return
				}
				w.Header().Set(SessionHeader, token)
			}

			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			sess, err := loader.Load(ctx, sessionID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}

// RequireSession is a guard for handlers mounted outside the Session middleware.
func RequireSession(r *http.Request) (*session.Session, error) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return sess, nil
}
