package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxObjectsPerRequest = 50

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, h.withLogging, withGZip)

	router.Get("/version", h.getServerVersion)

	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/{libraryType:users|groups}/{libraryID:[0-9]+}", func(r chi.Router) {
			r.Use(h.withLibrary)

			r.Get("/settings", h.getSettings)
			r.Post("/settings", h.postSettings)
			r.Delete("/settings", h.deleteSettings)

			r.Get("/deleted", h.getDeleted)

			r.Get("/items/top", h.getTopItems)
			r.Get("/{objects:collections|searches|items}", h.getObjects)
			r.Post("/{objects:collections|searches|items}", h.postObjects)
			r.Delete("/{objects:collections|searches|items}", h.deleteObjects)
		})
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
