package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"

	"github.com/charabracket/charabracket/handlers"
	"github.com/charabracket/charabracket/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	characterHandler *handlers.CharacterHandler,
	tagHandler *handlers.TagHandler,
	groupHandler *handlers.GroupHandler,
	imageHandler *handlers.ImageHandler,
	tournamentHandler *handlers.TournamentHandler,
	libraryHandler *handlers.LibraryHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	// Подписка на обновления сетки, токен не требуется.
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticator(jwtSecret))

		r.Get("/users/me", userHandler.Me)

		r.Route("/characters", func(r chi.Router) {
			r.Post("/", characterHandler.CreateHandler)
			r.Get("/", characterHandler.ListHandler)
			r.Get("/word-frequencies", characterHandler.WordFrequenciesHandler)

			r.Route("/{characterID}", func(r chi.Router) {
				r.Get("/", characterHandler.GetByIDHandler)
				r.Put("/", characterHandler.UpdateHandler)
				r.Delete("/", characterHandler.DeleteHandler)

				r.Route("/images", func(r chi.Router) {
					r.Post("/", imageHandler.UploadHandler)
					r.Get("/", imageHandler.ListHandler)
					r.Delete("/{imageID}", imageHandler.DeleteHandler)
				})
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Post("/", tagHandler.CreateHandler)
			r.Get("/", tagHandler.ListHandler)
			r.Put("/{tagID}", tagHandler.UpdateHandler)
			r.Delete("/{tagID}", tagHandler.DeleteHandler)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groupHandler.CreateHandler)
			r.Get("/", groupHandler.ListHandler)
			r.Get("/{groupID}", groupHandler.GetByIDHandler)
			r.Put("/{groupID}", groupHandler.UpdateHandler)
			r.Delete("/{groupID}", groupHandler.DeleteHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", tournamentHandler.CreateHandler)
			r.Get("/", tournamentHandler.ListHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.Delete("/", tournamentHandler.DeleteHandler)
				r.Post("/advance", tournamentHandler.AdvanceHandler)
				r.Get("/standings", tournamentHandler.StandingsHandler)
			})
		})

		r.Route("/library", func(r chi.Router) {
			r.Get("/export", libraryHandler.ExportHandler)
			r.Post("/import", libraryHandler.ImportHandler)
			r.Get("/stats", libraryHandler.StatsHandler)
		})
	})
}
