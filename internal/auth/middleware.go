package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"techsymposium/internal/config"
	"techsymposium/internal/logger"
	"techsymposium/internal/utils"
)

type contextKey string

const subjectKey contextKey = "subject"

var ErrForbidden = errors.New("admin role required")

// Verifier turns a bearer token into admin claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

type HMACVerifier struct {
	Secret string
}

func (v HMACVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	return ParseAdminToken(v.Secret, rawToken)
}

// OIDCVerifier accepts ID tokens from the configured issuer. Roles come
// from a top level "roles" claim or from Keycloak's realm_access.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuerURL string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Roles       []string `json:"roles"`
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	claims := &Claims{Roles: append(raw.Roles, raw.RealmAccess.Roles...)}
	claims.Subject = idToken.Subject
	return claims, nil
}

// NewVerifier prefers OIDC, then the shared JWT secret. It returns nil
// when neither is configured.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch {
	case cfg.OIDCIssuer != "":
		v, err := NewOIDCVerifier(ctx, cfg.OIDCIssuer)
		if err != nil {
			return nil, err
		}
		return v, nil
	case cfg.JWTSecret != "":
		return HMACVerifier{Secret: cfg.JWTSecret}, nil
	default:
		return nil, nil
	}
}

// RequireAdmin lets requests through only with an admin token. A nil
// verifier disables the check.
func RequireAdmin(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	if v == nil {
		log.LogSecurity("AUTH", "admin auth is disabled; set OIDC_ISSUER or ADMIN_JWT_SECRET")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse(err.Error(), "unauthorized"))
				return
			}

			claims, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("invalid token", "unauthorized"))
				return
			}
			if !claims.HasRole(RoleAdmin) {
				log.LogSecurity("AUTH", fmt.Sprintf("%s lacks the admin role for %s", claims.Subject, r.URL.Path))
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse(ErrForbidden.Error(), "forbidden"))
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated admin, or "" on open routes.
func Subject(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectKey).(string); ok {
		return sub
	}
	return ""
}
