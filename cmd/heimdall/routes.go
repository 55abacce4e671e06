package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"heimdall/api"
	"heimdall/config"
	"heimdall/handlers"
	"heimdall/internal/logging"
	"heimdall/utils"
)

// newRouter mounts every HTTP route on top of the base router.
func newRouter(s config.Settings, d *deps, logger zerolog.Logger) *mux.Router {
	r := utils.NewRouter(s.Server.AllowedOrigins)
	r.Use(api.LoggingMiddleware(logging.Component(logger, "http")))

	cookieName := s.Auth.CookieName
	if cookieName == "" {
		cookieName = api.DefaultCookieName
	}

	authHandler := handlers.NewAuthHandler(d.accounts, d.sessions, cookieName, s.Auth.SecureCookie, logging.Component(logger, "auth"))
	profilesHandler := handlers.NewProfilesHandler(d.profiles, logger)
	watchlistHandler := handlers.NewWatchlistHandler(d.watchlist, logger)
	metadataHandler := handlers.NewMetadataHandler(d.router)
	musicHandler := handlers.NewMusicHandler(d.router)
	versionHandler := handlers.NewVersionHandler()

	origins := utils.NewOriginPolicy(s.Server.AllowedOrigins)
	partyHandler := handlers.NewWatchPartyHandler(d.hub, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origins.Allowed(origin)
	}, logger)

	// Public routes
	r.HandleFunc("/api/signup", api.RateLimitHandlerFunc(d.limiter, authHandler.Signup)).Methods(http.MethodPost)
	r.HandleFunc("/api/login", api.RateLimitHandlerFunc(d.limiter, authHandler.Login)).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", authHandler.Logout).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/version", versionHandler.GetVersion).Methods(http.MethodGet)

	music := r.PathPrefix("/api/music").Subrouter()
	music.HandleFunc("/search/{query}", musicHandler.Search).Methods(http.MethodGet)
	music.HandleFunc("/stream", musicHandler.Stream).Methods(http.MethodGet)
	music.HandleFunc("/lyrics", musicHandler.Lyrics).Methods(http.MethodGet)

	// Routes below need a session
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(api.AccountAuthMiddleware(d.sessions, cookieName))

	protected.HandleFunc("/current-user", authHandler.CurrentUser).Methods(http.MethodGet)
	protected.HandleFunc("/password", authHandler.ChangePassword).Methods(http.MethodPost)

	protected.HandleFunc("/profiles", profilesHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/profiles", profilesHandler.Save).Methods(http.MethodPost)

	protected.HandleFunc("/watchlist", watchlistHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/watchlist", watchlistHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/watchlist/profile/{name}", watchlistHandler.DeleteProfile).Methods(http.MethodDelete)
	protected.HandleFunc("/watchlist/{id}", watchlistHandler.Remove).Methods(http.MethodDelete)

	protected.HandleFunc("/movies/{category}", metadataHandler.List("movie")).Methods(http.MethodGet)
	protected.HandleFunc("/tv/{id:[0-9]+}/season/{season:[0-9]+}", metadataHandler.Season).Methods(http.MethodGet)
	protected.HandleFunc("/tv/{category}", metadataHandler.List("tv")).Methods(http.MethodGet)
	protected.HandleFunc("/genres/{mediaType}", metadataHandler.Genres).Methods(http.MethodGet)
	protected.HandleFunc("/discover", metadataHandler.Discover).Methods(http.MethodGet)
	protected.HandleFunc("/search", metadataHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/details/{mediaType}/{id}", metadataHandler.Details).Methods(http.MethodGet)

	protected.HandleFunc("/watchparty/list", partyHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/watchparty", partyHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/watchparty/{code}", partyHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/watchparty/{code}/ws", partyHandler.Connect).Methods(http.MethodGet)

	if s.Server.FrontendDir != "" {
		r.PathPrefix("/").Handler(handlers.NewStaticHandler(afero.NewOsFs(), s.Server.FrontendDir)).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}
