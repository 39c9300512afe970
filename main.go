package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adruby-studio/handlers/api/creatives"
	"adruby-studio/handlers/api/studio"
	"adruby-studio/handlers/api/wizard"
	"adruby-studio/handlers/auth"
	authMiddleware "adruby-studio/middleware"
	"adruby-studio/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func setupRouter(store stores.Store, sessions *studio.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)

			r.Route("/creatives", func(r chi.Router) {
				r.Get("/", creatives.HandleList(store))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", creatives.HandleGet(store))
					r.Get("/snapshot", creatives.HandleGetSnapshot(store))
					r.Delete("/", creatives.HandleDelete(store))
				})
			})

			r.Route("/studio", func(r chi.Router) {
				r.Post("/sessions", studio.HandleOpen(sessions, store))
				r.Route("/sessions/{id}", func(r chi.Router) {
					r.Post("/wizard-complete", studio.HandleWizardComplete(sessions))
					r.Post("/save", studio.HandleSave(sessions))
					r.Delete("/", studio.HandleClose(sessions))
				})
				r.Post("/wizard", wizard.HandleGenerate())
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
	})

	return r
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	wizard.Init()
	store := stores.GetStore()
	sessions := studio.NewManager()

	r := setupRouter(store, sessions)

	srv := &http.Server{Addr: *listenAddress, Handler: r}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-stop

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
