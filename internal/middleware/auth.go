// Package middleware contains HTTP middleware functions for the League Ops API.
// Middleware sits between the HTTP server and route handlers — it runs on every
// request that passes through it, making it the right place for cross-cutting
// concerns like authentication, logging, and rate limiting.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	// fiber is the HTTP framework; fiber.Handler is the function signature for middleware
	"github.com/gofiber/fiber/v2"
	// jwt is used to parse and verify JSON Web Tokens from the Authorization header
	"github.com/golang-jwt/jwt/v5"
	// gorm is our ORM — used here to find or create the player record in Postgres
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/config"
	"github.com/fairwayops/league/internal/models"
)

// Claims defines the data we expect inside a bearer token payload.
// The identity provider issues tokens with the standard fields (Subject = the
// provider's user ID, expiry, etc.) plus custom claims configured in its
// token template:
//
//	"role":  the player's permission level ("admin", "scorer", or "user")
//	"email": used to populate/match our players table
//	"name":  display name for our players table
//
// Without the custom claims, role defaults to "user" and email/name fall back
// to placeholder values.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT fields: Subject (user ID), ExpiresAt, IssuedAt, etc.
	Role                 string `json:"role"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
}

// Auth returns a Fiber middleware handler that:
//  1. Verifies the JWT from the "Authorization: Bearer <token>" header
//  2. Finds the matching player in our database (or creates one on first visit)
//  3. Syncs the player's role from the token into the database
//  4. Stores the player's internal UUID and role in the request context (c.Locals)
//     so downstream handlers can read them without re-parsing the token
//
// This is a closure — a function that returns another function, capturing cfg and db
// in its scope so they're available every time a request comes in.
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// --- Step 1: Extract the token from the Authorization header ---

		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}

		// Strip the "Bearer " prefix to get just the raw JWT string
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		// --- Step 2: Parse and verify the JWT ---
		// The keyfunc hands the parser our shared HMAC secret and pins the
		// accepted signing algorithm — accepting whatever "alg" the token
		// declares is the classic JWT vulnerability.
		token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token claims",
			})
		}

		// claims.Subject is the standard JWT "sub" field — the identity provider's user ID
		subject := claims.Subject
		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		// --- Step 3: Find or create the player in our database ---
		// This is "lazy player sync": the first time someone hits any authenticated
		// endpoint, we create their record. On subsequent requests we just look them up.

		role := roleFromClaim(claims.Role)

		// Build placeholder email and name in case the token template doesn't include them.
		// These use the provider's user ID so they're deterministic and unique.
		email := claims.Email
		if email == "" {
			email = fmt.Sprintf("%s@auth.local", subject)
		}

		name := claims.Name
		if name == "" {
			name = "Player"
		}

		var player models.Player

		result := db.Where("auth_subject = ?", subject).First(&player)

		if result.Error != nil {
			// gorm.ErrRecordNotFound is the expected "not found" error; anything else is a DB problem
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "database error",
				})
			}

			// Create the player row — GORM will call INSERT and the BeforeCreate
			// hook will populate player.ID with a new UUID
			player = models.Player{
				AuthSubject: &subject,
				Name:        name,
				Email:       &email,
				Role:        role,
			}
			if err := db.Create(&player).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to create player record",
				})
			}
		} else {
			// Player found — sync their role in case it changed at the identity provider
			// (e.g. an admin promoted someone to scorer via the provider dashboard)
			if player.Role != role && claims.Role != "" {
				db.Model(&player).Update("role", role)
				player.Role = role
			}
		}

		// --- Step 4: Store player info in the request context ---
		// c.Locals is a key-value store scoped to this single request.
		// Handlers read "userID" (our internal UUID) and "userRole" from here.
		c.Locals("userID", player.ID.String())
		c.Locals("userRole", string(player.Role))

		// Pass control to the next middleware or route handler
		return c.Next()
	}
}

// roleFromClaim converts the raw role string from the JWT into our typed PlayerRole enum.
// If the claim is missing or unrecognised, it defaults to "user" (least privileged).
func roleFromClaim(s string) models.PlayerRole {
	switch s {
	case "admin":
		return models.PlayerRoleAdmin
	case "scorer":
		return models.PlayerRoleScorer
	default:
		return models.PlayerRoleUser
	}
}
