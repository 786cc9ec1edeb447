package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/middleware"
)

// NewRouter constructs the development server's HTTP handler.
//
// Routes:
//
//	POST   /signup              → authHandler.Signup (form)
//	POST   /token               → authHandler.Token (form)
//	POST   /upload_resume       → resumeHandler.Upload (multipart)
//	GET    /progress/all/       → progressHandler.List
//	POST   /progress/           → progressHandler.Save
//	DELETE /progress/{id}/      → progressHandler.Delete
//	PATCH  /progress/{id}/      → progressHandler.Rename
//	PATCH  /progress/{id}/step/ → progressHandler.Toggle
//
// Every request is logged; /progress requires a bearer token.
func NewRouter(
	authHandler *AuthHandler,
	resumeHandler *ResumeHandler,
	progressHandler *ProgressHandler,
	auth middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/x-www-form-urlencoded"))
		r.Post("/signup", authHandler.Signup)
		r.Post("/token", authHandler.Token)
	})

	r.With(
		middleware.BearerAuth(auth),
		chiMiddleware.AllowContentType("multipart/form-data"),
	).Post("/upload_resume", resumeHandler.Upload)

	r.Route("/progress", func(r chi.Router) {
		r.Use(middleware.BearerAuth(auth))
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/all/", progressHandler.List)
		r.Post("/", progressHandler.Save)
		r.Delete("/{id}/", progressHandler.Delete)
		r.Patch("/{id}/", progressHandler.Rename)
		r.Patch("/{id}/step/", progressHandler.Toggle)
	})

	return r
}
