package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/repo"
	"github.com/mpetrashov/projecthub/internal/tokens"
)

const userContextKey = "current_user"

// SimpleAuth resolves the bearer access token on protected routes to a
// user and stores it on the request context. Refresh tokens never
// authenticate a request.
type SimpleAuth struct {
	Codec *tokens.Codec
	Repo  repo.GormRepo
}

func NewSimpleAuth(codec *tokens.Codec, rp repo.GormRepo) *SimpleAuth {
	return &SimpleAuth{Codec: codec, Repo: rp}
}

func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed authorization header")
		}

		claims, err := m.Codec.Parse(raw)
		if err != nil || claims.Type != tokens.TypeAccess {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := m.Repo.FindUserByID(c.Request().Context(), uint(id))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// CurrentUser returns the principal resolved by RequireAuth, or nil.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is missing")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
