package middleware

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/netaconnect/billing-backend/api/responses"
	pkgAuth "github.com/netaconnect/billing-backend/pkg/auth"
	"github.com/netaconnect/billing-backend/pkg/config"
	pkgerrors "github.com/netaconnect/billing-backend/pkg/errors"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

// IDTokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseAuth validates the caller's Firebase ID token and seeds the request
// context with their uid.
func FirebaseAuth(verifier IDTokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if verifier == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMisconfigured, "token verifier unavailable"))
				return
			}

			verified, err := verifier.VerifyIDToken(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if verified.UID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no subject"))
				return
			}

			ctx := WithUserID(r.Context(), verified.UID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, verified.UID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceAuth admits internal callers holding a service token with scope.
func ServiceAuth(cfg config.ServiceAuthConfig, scope string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseServiceToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid service token"))
				return
			}
			if scope != "" && !claims.HasScope(scope) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "service token lacks scope "+scope))
				return
			}

			ctx := context.WithValue(r.Context(), ctxServiceSubject, claims.Subject)
			if logg != nil {
				ctx = logg.WithField(ctx, "service_subject", claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", false
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token, token != ""
}
