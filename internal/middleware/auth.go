package middleware

import (
	"envios-backend/internal/constants"
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// Actor is the authenticated identity handed to services: id plus role, as
// supplied by the identity boundary. Services trust it.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// IsAdmin reports whether the actor holds the privileged role.
func (a Actor) IsAdmin() bool {
	return a.Role == constants.Admin
}

// CurrentActor extracts the actor from the session user in Locals.
func CurrentActor(c *fiber.Ctx) (Actor, error) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return Actor{}, apperr.PermissionDenied("Not authenticated")
	}
	idStr, _ := m["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Actor{}, apperr.PermissionDenied("Not authenticated")
	}
	email, _ := m["email"].(string)
	role, _ := m["role"].(string)
	return Actor{UserID: id, Email: email, Role: role}, nil
}
