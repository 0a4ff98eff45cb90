package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/admin"
	"github.com/eventboard/app/internal/carousel"
	"github.com/eventboard/app/internal/config"
	"github.com/eventboard/app/internal/handlers"
	"github.com/eventboard/app/internal/identity"
	"github.com/eventboard/app/internal/projection"
	"github.com/eventboard/app/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the document store
	st, err := store.Connect(ctx, cfg.MongoURI, cfg.Namespace, logger)
	if err != nil {
		logger.Fatal("connect store", zap.Error(err))
	}
	defer st.Close(context.Background())

	// Start the projection engine and carousel
	car := carousel.New()
	engine := projection.New(st, logger)
	engine.OnBannersChanged = car.SetCount
	engine.OnStreamError = func(err error) {
		logger.Fatal("store subscription lost", zap.Error(err))
	}
	if err := engine.Start(ctx); err != nil {
		logger.Fatal("start projection engine", zap.Error(err))
	}
	defer engine.Close()

	provider := identity.NewProvider(cfg.TokenSecret)
	sessions := admin.NewSessions()
	validate := validator.New()

	// Periodic work: the carousel tick, plus a minutely push so imminent
	// transitions reach connected clients without a data change.
	cr := cron.New()
	if _, err := cr.AddFunc(fmt.Sprintf("@every %s", cfg.CarouselInterval), car.Advance); err != nil {
		logger.Fatal("schedule carousel tick", zap.Error(err))
	}
	if _, err := cr.AddFunc("@every 1m", engine.Broadcast); err != nil {
		logger.Fatal("schedule projection push", zap.Error(err))
	}
	cr.Start()
	defer cr.Stop()

	viewer := handlers.ViewerMiddleware(provider, logger)
	adminOnly := handlers.AdminMiddleware(sessions)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handlers.Health(st))

	// Admin gate routes
	mux.HandleFunc("/api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "login requires POST")
			return
		}
		handlers.AdminLogin(sessions, cfg.AdminPIN)(w, r)
	})
	mux.HandleFunc("/api/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "logout requires POST")
			return
		}
		handlers.AdminLogout(sessions)(w, r)
	})

	// Event routes
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			viewer(handlers.ListEvents(engine, cfg.ImminentWindow))(w, r)
		case http.MethodPost:
			viewer(adminOnly(handlers.CreateEvent(st, validate, logger)))(w, r)
		default:
			handlers.RespondError(w, http.StatusMethodNotAllowed, "method not allowed for /api/events")
		}
	})
	mux.HandleFunc("/api/events/", routeDynamicEventPaths(st, viewer, adminOnly, logger))

	// Banner routes
	mux.HandleFunc("/api/banners", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListBanners(engine)(w, r)
		case http.MethodPost:
			viewer(adminOnly(handlers.CreateBanner(st, validate, logger)))(w, r)
		default:
			handlers.RespondError(w, http.StatusMethodNotAllowed, "method not allowed for /api/banners")
		}
	})
	mux.HandleFunc("/api/banners/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			handlers.RespondError(w, http.StatusMethodNotAllowed, "only DELETE is allowed for a banner")
			return
		}
		viewer(adminOnly(handlers.DeleteBanner(st, logger)))(w, r)
	})

	mux.HandleFunc("/api/carousel", handlers.CarouselState(car))

	// Live updates
	mux.HandleFunc("/ws", viewer(handlers.LiveUpdates(engine, cfg.ImminentWindow, logger)))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("namespace", cfg.Namespace))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// routeDynamicEventPaths handles /api/events/{id} and /api/events/{id}/rsvp,
// which the flat mux cannot match on its own.
func routeDynamicEventPaths(
	st store.Store,
	viewer func(http.HandlerFunc) http.HandlerFunc,
	adminOnly func(http.HandlerFunc) http.HandlerFunc,
	logger *zap.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/events/")
		parts := strings.Split(path, "/")
		// Expected:
		// /api/events/{id}      -> ["{id}"]
		// /api/events/{id}/rsvp -> ["{id}", "rsvp"]

		if len(parts) == 0 || parts[0] == "" {
			handlers.RespondError(w, http.StatusNotFound, "event id missing or invalid path")
			return
		}

		switch {
		case len(parts) == 1:
			if r.Method != http.MethodDelete {
				handlers.RespondError(w, http.StatusMethodNotAllowed, "only DELETE is allowed for an event")
				return
			}
			viewer(adminOnly(handlers.DeleteEvent(st, logger)))(w, r)
		case len(parts) == 2 && parts[1] == "rsvp":
			if r.Method != http.MethodPost {
				handlers.RespondError(w, http.StatusMethodNotAllowed, "only POST is allowed for rsvp")
				return
			}
			viewer(handlers.ToggleRSVP(st, logger))(w, r)
		default:
			handlers.RespondError(w, http.StatusNotFound, "invalid event path structure")
		}
	}
}
