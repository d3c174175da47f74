package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIdLocal = "user_id"

var ErrInvalidToken = errors.New("invalid token")

// JWTVerifier resolves a bearer token to a user id. The id is read from the
// user_id claim, falling back to sub.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	raw, _ := claims["user_id"].(string)
	if raw == "" {
		raw, _ = claims.GetSubject()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user id claim: %v", ErrInvalidToken, err)
	}
	return id, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's id in Locals("user_id").
func (v *JWTVerifier) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		userId, err := v.Verify(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponseWithDetails(fiber.StatusUnauthorized, "Invalid user token", err.Error()))
		}

		ctx.Locals(userIdLocal, userId.String())
		return ctx.Next()
	}
}

// UserID returns the id set by Middleware.
func UserID(ctx *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := ctx.Locals(userIdLocal).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
