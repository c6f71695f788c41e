package auth

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	CtxSubject  ctxKey = "sub"
	CtxTenantID ctxKey = "tid"
	CtxDeviceID ctxKey = "did"
)

// JWTCfg holds JWT authentication configuration
type JWTCfg struct {
	HS256Secret string // HMAC secret for HS256 tokens
	DevMode     bool   // Allow X-Debug-* headers (DANGEROUS: only for local dev)
}

// Middleware creates HTTP middleware for bearer-token authentication.
// Tokens are HS256 JWTs carrying `sub` (staff identity), `tid` (tenant)
// and optionally `did` (terminal). The tenant claim is the isolation
// boundary: every core call downstream is scoped to it.
//
// When DevMode is enabled, X-Debug-Sub / X-Debug-Tenant / X-Debug-Device
// headers bypass token validation for local development and tests.
func Middleware(cfg JWTCfg) func(http.Handler) http.Handler {
	if cfg.DevMode {
		log.Warn().Msg("SECURITY WARNING: DevMode enabled - X-Debug-* headers bypass JWT authentication")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tok = h[7:]
			}

			var sub, tenantID, deviceID string

			if cfg.DevMode && tok == "" {
				sub = r.Header.Get("X-Debug-Sub")
				tenantID = r.Header.Get("X-Debug-Tenant")
				deviceID = r.Header.Get("X-Debug-Device")
				if sub != "" {
					log.Debug().Str("sub", sub).Str("tenant_id", tenantID).Msg("using X-Debug headers (dev mode)")
				}
			}

			if tok != "" {
				claims := jwt.MapClaims{}
				t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrSignatureInvalid
					}
					return []byte(cfg.HS256Secret), nil
				})
				if err != nil || !t.Valid {
					log.Warn().Err(err).Msg("jwt validation failed")
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}

				if s, ok := claims["sub"].(string); ok {
					sub = s
				}
				if s, ok := claims["tid"].(string); ok {
					tenantID = s
				}
				if s, ok := claims["did"].(string); ok {
					deviceID = s
				}
			}

			if sub == "" || tenantID == "" {
				log.Warn().Msg("missing subject or tenant claim")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CtxSubject, sub)
			ctx = context.WithValue(ctx, CtxTenantID, tenantID)
			if deviceID != "" {
				ctx = context.WithValue(ctx, CtxDeviceID, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject extracts the authenticated staff identity from request context
func Subject(ctx context.Context) string {
	return ctxString(ctx, CtxSubject)
}

// TenantID extracts the validated tenant identifier from request context.
// Empty only before the middleware has run.
func TenantID(ctx context.Context) string {
	return ctxString(ctx, CtxTenantID)
}

// DeviceID extracts the terminal identifier from request context, when
// the token carried one. Push bodies may override it per request.
func DeviceID(ctx context.Context) string {
	return ctxString(ctx, CtxDeviceID)
}

func ctxString(ctx context.Context, key ctxKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
