package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vitale-labs/voucher-service/pkg/token"
)

// claimsKey is the fiber locals key the authenticated claims are stored
// under.
const claimsKey = "auth_claims"

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// Authenticate parses the Bearer token from the Authorization header and
// stores its claims in the request locals. Requests without a valid token
// get 401.
func Authenticate(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authorization required"})
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization header"})
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// RequireRole rejects authenticated requests whose token role is not in the
// allowed set. Must run after Authenticate.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authorization required"})
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role"})
	}
}

// ClaimsFrom returns the claims stored by Authenticate, or nil.
func ClaimsFrom(c *fiber.Ctx) *token.Claims {
	claims, _ := c.Locals(claimsKey).(*token.Claims)
	return claims
}
