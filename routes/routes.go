package routes

import (
	"github.com/aldiyarbek/tournament-bot/handlers"
	"github.com/aldiyarbek/tournament-bot/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	webhookHandler *handlers.WebhookHandler,
	admissionHandler *handlers.AdmissionHandler,
	tournamentHandler *handlers.TournamentHandler,
	adminHandler *handlers.AdminHandler,
	broadcastHandler *handlers.BroadcastHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Вебхук бота; Телеграм авторизацию заголовком не передаёт.
	router.Post("/webhook/telegram", webhookHandler.HandleUpdate)

	// Публичные маршруты.
	router.Post("/auth/login", authHandler.Login)
	router.Get("/bracket", tournamentHandler.Bracket)
	router.Get("/ws", webSocketHandler.ServeWs)

	// Админ-панель, только с JWT.
	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Get("/overview", tournamentHandler.Overview)

		r.Get("/applications", admissionHandler.ListRecent)
		r.Post("/applications/{applicationID}/approve", admissionHandler.Approve)
		r.Post("/applications/{applicationID}/reject", admissionHandler.Reject)

		r.Post("/tournament/start", tournamentHandler.Start)
		r.Post("/tournament/reset", tournamentHandler.Reset)
		r.Post("/tournament/regenerate", tournamentHandler.Regenerate)

		r.Get("/settings", tournamentHandler.GetSettings)
		r.Put("/settings", tournamentHandler.UpdateSettings)

		r.Get("/admins", adminHandler.List)
		r.Post("/admins", adminHandler.Add)
		r.Delete("/admins/{adminID}", adminHandler.Remove)

		r.Post("/broadcast", broadcastHandler.Send)
	})
}
