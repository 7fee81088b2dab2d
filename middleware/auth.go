package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	localToken = "token"
	localActor = "actor"

	// AnonymousActor is recorded when no readable token was forwarded.
	AnonymousActor = "anonymous"
)

// Claims are the identity fields the institute API puts in its tokens.
type Claims struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ForwardToken keeps the admin's bearer token for the API client and reads
// the actor name for the audit trail. The token is NOT verified; the
// institute API remains the authority and rejects bad tokens itself.
func ForwardToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("token")
		}
		c.Locals(localToken, token)
		c.Locals(localActor, ActorFromToken(token))
		return c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// ActorFromToken returns the display identity carried by token, preferring
// name, then username, email and subject.
func ActorFromToken(token string) string {
	if token == "" {
		return AnonymousActor
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return AnonymousActor
	}
	for _, v := range []string{claims.Name, claims.Username, claims.Email, claims.Subject} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return AnonymousActor
}

// GetToken returns the forwarded bearer token, or "".
func GetToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}

// GetActor returns the actor read by ForwardToken.
func GetActor(c *fiber.Ctx) string {
	if actor, ok := c.Locals(localActor).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
