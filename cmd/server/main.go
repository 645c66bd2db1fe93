// cmd/server/main.go
// This is the entry point for the League Ops API server.
// The "cmd/server" directory follows a common Go convention: the cmd/ folder
// holds executable binaries, and internal/ holds the packages that are not
// meant to be imported by other projects.
package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fairwayops/league/internal/assignment"
	"github.com/fairwayops/league/internal/config"
	"github.com/fairwayops/league/internal/database"
	"github.com/fairwayops/league/internal/events"
	"github.com/fairwayops/league/internal/handlers"
	"github.com/fairwayops/league/internal/middleware"
	"github.com/fairwayops/league/internal/roster"
	"github.com/fairwayops/league/internal/rsvp"
	"github.com/fairwayops/league/internal/websocket"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run any pending SQL migration files (in the migrations/ directory) so the
	// schema is in sync every time the server starts.
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// The hub fans change notices out to operators with a tee sheet open.
	hub := websocket.NewHub()
	go hub.Run()

	// Transports: nil when unconfigured. Queued messages then stay pending
	// rather than failing, so an operator can still prepare a send.
	var emailSender rsvp.EmailSender
	if cfg.SmtpFrom != "" {
		emailSender = &rsvp.LogEmailSender{From: cfg.SmtpFrom}
	}
	var smsSender rsvp.SMSSender
	if cfg.SmsFrom != "" {
		smsSender = &rsvp.LogSmsSender{From: cfg.SmsFrom}
	}

	rosterSvc := roster.NewService(db)
	assignmentSvc := assignment.NewService(db)
	eventSvc := events.NewService(db, rosterSvc)
	rsvpSvc := rsvp.NewService(db, emailSender, smsSender, cfg.RsvpBaseURL, cfg.RsvpSendDelay)

	app := fiber.New(fiber.Config{
		AppName: "League Ops API",
	})

	// Global middleware — runs on every request before any route handler.
	app.Use(logger.New())
	app.Use(recover.New())
	// cors.New() allows requests from any origin (needed for the web app in
	// development). In production, lock this down to your specific domain.
	app.Use(cors.New())

	// --- Public routes (no auth) ---
	app.Get("/health", handlers.HealthCheck)
	// RSVP responses arrive from invitation links; the token is the credential.
	app.Get("/rsvp/:token", handlers.RsvpLandingPage(rsvpSvc, hub))
	app.Post("/api/v1/rsvp/respond", handlers.RespondToRsvp(rsvpSvc, hub))

	// --- Authenticated API routes ---
	// Everything under /api/v1 requires a valid bearer token. middleware.Auth
	// verifies it AND syncs the caller into the players table.
	api := app.Group("/api/v1", middleware.Auth(cfg, db))

	// Events
	api.Get("/events", handlers.GetEvents(eventSvc))
	api.Post("/events", middleware.RequireRole("admin"), handlers.CreateEvent(eventSvc))
	api.Get("/events/:id", handlers.GetEvent(eventSvc))
	api.Patch("/events/:id", middleware.RequireRole("admin"), handlers.UpdateEvent(eventSvc))
	api.Delete("/events/:id", middleware.RequireRole("admin"), handlers.DeleteEvent(eventSvc))
	api.Post("/events/:id/lock", middleware.RequireRole("admin"), handlers.LockEvent(eventSvc, true))
	api.Post("/events/:id/unlock", middleware.RequireRole("admin"), handlers.LockEvent(eventSvc, false))

	// Roster
	api.Get("/events/:id/players", handlers.GetRoster(rosterSvc))
	api.Post("/events/:id/players", middleware.RequireRole("admin"), handlers.AddRosterPlayer(rosterSvc, hub))
	api.Post("/events/:id/players/bulk-status", middleware.RequireRole("admin"), handlers.BulkSetRosterStatus(rosterSvc, hub))
	api.Post("/events/:id/players/add-previous", middleware.RequireRole("admin"), handlers.BulkAddFromPrevious(rosterSvc, hub))
	api.Post("/events/:id/players/add-active", middleware.RequireRole("admin"), handlers.BulkAddActive(rosterSvc, hub))
	api.Patch("/players/:epid/status", handlers.SetRosterStatus(rosterSvc, hub))
	api.Delete("/players/:epid", middleware.RequireRole("admin"), handlers.RemoveRosterPlayer(rosterSvc, hub))

	// Tee sheet
	api.Get("/events/:id/groups", handlers.GetTeeSheet(db, assignmentSvc))
	api.Post("/events/:id/assignments/auto", middleware.RequireRole("admin"), handlers.AutoAssignGroups(assignmentSvc, hub))
	api.Put("/events/:id/assignments", middleware.RequireRole("admin"), handlers.MoveAssignment(assignmentSvc, hub))
	api.Delete("/events/:id/assignments/:playerId", middleware.RequireRole("admin"), handlers.RemoveAssignment(assignmentSvc, hub))
	api.Get("/events/:id/assignments/unassigned", handlers.GetUnassigned(assignmentSvc))
	api.Patch("/groups/:gid/tee-time", middleware.RequireRole("admin"), handlers.SetGroupTeeTime(eventSvc))

	// Scoring
	api.Post("/events/:id/scores", middleware.RequireRole("admin", "scorer"), handlers.SaveScore(db))
	api.Get("/events/:id/scores", handlers.GetEventScores(db))
	api.Get("/leaderboard", handlers.GetLeaderboard(db))
	api.Get("/players/:id/average", handlers.GetPlayerAverage(db))

	// RSVP messaging
	api.Get("/templates", handlers.GetRsvpTemplates(db))
	api.Post("/templates", middleware.RequireRole("admin"), handlers.CreateRsvpTemplate(db))
	api.Post("/events/:id/rsvp/send", middleware.RequireRole("admin"), handlers.SendRsvps(rsvpSvc, hub))
	api.Get("/events/:id/rsvp/messages", handlers.GetRsvpMessages(rsvpSvc))

	log.Printf("Starting server on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
