package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api/metrics"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

// ContextKeyIdentity is the echo context key holding the bound domain.Identity
// for the duration of one request.
const ContextKeyIdentity = "identity"

// IdentityConfig configures the downstream identity interceptor.
type IdentityConfig struct {
	AllowList AllowList
	// Verifier, when set, re-validates the forwarded bearer credential and
	// requires it to agree with the propagation headers.
	Verifier ports.TokenValidator
	Logger   zerolog.Logger
}

// Identity binds the caller described by the gateway's propagation headers to
// the request. Requests without a complete, consistent identity are rejected.
// The binding is undone on every exit path, including panics, because echo
// reuses Context values across requests.
func Identity(cfg IdentityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orig := c.Request()
			defer func() {
				c.SetRequest(orig)
				c.Set(ContextKeyIdentity, nil)
			}()

			if cfg.AllowList.Allows(orig.URL.Path) {
				anon := orig.Clone(orig.Context())
				stripIdentityHeaders(anon.Header)
				c.SetRequest(anon)
				return next(c)
			}

			id, err := identityFromHeaders(orig.Header)
			if err == nil && cfg.Verifier != nil {
				err = verifyAgainstToken(cfg.Verifier, orig.Header.Get(echo.HeaderAuthorization), id)
			}
			if err != nil {
				reason := rejectReason(err)
				metrics.AuthRejectionsTotal.WithLabelValues("downstream", reason).Inc()
				cfg.Logger.Warn().
					Err(err).
					Str("path", orig.URL.Path).
					Str("reason", reason).
					Msg("request rejected: no valid propagated identity")
				return err
			}

			c.SetRequest(orig.WithContext(identity.With(orig.Context(), id)))
			c.Set(ContextKeyIdentity, id)
			metrics.IdentitiesResolvedTotal.WithLabelValues(string(id.Role)).Inc()
			return next(c)
		}
	}
}

func verifyAgainstToken(v ports.TokenValidator, header string, id domain.Identity) error {
	token, err := bearerToken(header)
	if err != nil {
		return err
	}
	claims, err := v.Validate(token)
	if err != nil {
		return err
	}
	got := claims.Identity()
	if got.SubjectID != id.SubjectID || got.Role != id.Role || got.TenantID != id.TenantID {
		return fmt.Errorf("%w: propagated identity disagrees with credential", domain.ErrInvalidIdentity)
	}
	return nil
}
