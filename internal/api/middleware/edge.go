package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api/metrics"
	"github.com/deeprisk/fee-risk-system/internal/core/domain"
	"github.com/deeprisk/fee-risk-system/internal/core/identity"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

// EdgeConfig configures the gateway identity filter.
type EdgeConfig struct {
	Validator ports.TokenValidator
	AllowList AllowList
	Logger    zerolog.Logger
}

// Edge validates the bearer credential of every non allow-listed request and
// rewrites the propagation headers from the validated claims. It is meant to
// be registered with echo's Pre so it runs before routing and proxying.
func Edge(cfg EdgeConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			stripIdentityHeaders(req.Header)

			if cfg.AllowList.Allows(req.URL.Path) {
				return next(c)
			}

			token, err := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if err == nil {
				var claims *domain.Claims
				claims, err = cfg.Validator.Validate(token)
				if err == nil {
					id := claims.Identity()
					setIdentityHeaders(req.Header, id)
					c.SetRequest(req.WithContext(identity.With(req.Context(), id)))
					metrics.IdentitiesResolvedTotal.WithLabelValues(string(id.Role)).Inc()
					return next(c)
				}
			}

			reason := rejectReason(err)
			metrics.AuthRejectionsTotal.WithLabelValues("edge", reason).Inc()
			cfg.Logger.Info().
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP()).
				Str("reason", reason).
				Msg("request rejected at edge")
			return err
		}
	}
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrTokenMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", domain.ErrTokenMalformed
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrTokenMissing
	}
	return token, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenMissing), errors.Is(err, domain.ErrIdentityMissing):
		return "missing"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
