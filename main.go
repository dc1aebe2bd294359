package main

import (
	"context"
	"embed"
	"flag"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adminapi "storefront-complete/handlers/api/admin"
	catalogapi "storefront-complete/handlers/api/catalog"
	sessionapi "storefront-complete/handlers/api/session"
	"storefront-complete/handlers/auth"
	authMiddleware "storefront-complete/middleware"

	"storefront-complete/catalog"
	"storefront-complete/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

//go:embed all:frontend
var assets embed.FS

func handleUI() http.HandlerFunc {
	sub, err := fs.Sub(assets, "frontend")
	if err != nil {
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" || path == "" {
			path = "/index.html"
		}

		f, err := sub.Open(strings.TrimPrefix(path, "/"))
		if err != nil {
			// Requests without a file extension are client-side routes; the
			// shell handles them from index.html.
			if os.IsNotExist(err) && !strings.Contains(path, ".") {
				path = "/index.html"
				f, err = sub.Open("index.html")
			} else {
				http.NotFound(w, r)
				return
			}
		}

		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, "Error reading file", http.StatusInternalServerError)
			return
		}

		contentType := http.DetectContentType(content)
		switch {
		case strings.HasSuffix(path, ".js"):
			contentType = "application/javascript"
		case strings.HasSuffix(path, ".html"):
			contentType = "text/html"
		case strings.HasSuffix(path, ".css"):
			contentType = "text/css"
		case strings.HasSuffix(path, ".png"):
			contentType = "image/png"
		}

		w.Header().Set("Content-Type", contentType)
		if _, err := w.Write(content); err != nil {
			http.Error(w, "Error serving file", http.StatusInternalServerError)
			return
		}
	}
}

func setupRouter(store stores.Store, rec *catalog.Reconciler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "Host", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sessions := sessionapi.NewManager(rec)

	r.Route("/api/v2", func(r chi.Router) {
		// Admin mutations, protected by JWT auth
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)
			r.Post("/products", adminapi.HandleSaveProduct(rec))
			r.Delete("/products/{id}", adminapi.HandleDeleteProduct(rec))
			r.Put("/site-config/{key}", adminapi.HandleSetSiteConfig(store, rec))
		})

		r.Get("/products", catalogapi.HandleListProducts(rec))
		r.Get("/products/{id}", catalogapi.HandleGetProduct(rec))
		r.Get("/site-config/{key}", catalogapi.HandleGetSiteConfig(store))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessions.HandleState())
			r.Post("/navigate", sessions.HandleNavigate())
			r.Post("/sync", sessions.HandleSync())
			r.Post("/back", sessions.HandleBack())
			r.Post("/forward", sessions.HandleForward())
			r.Post("/search", sessions.HandleSearch())
			r.Post("/cart", sessions.HandleAddToCart())
			r.Delete("/cart/{index}", sessions.HandleRemoveFromCart())
			r.Post("/checkout", sessions.HandleCheckout())
		})
	})

	r.Post("/auth/login", auth.HandleLogin)

	return r
}

func waitForShutdown(server *http.Server) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
	logrus.Info("Shutting down...")
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
	store := stores.GetStore()
	rec := catalog.New(store)

	// Warm the snapshot; a failed first load serves an empty catalog until
	// the next successful reload rather than refusing to start.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := rec.Reload(ctx); err != nil {
		logrus.WithError(err).Error("Initial catalog load failed")
	}
	cancel()

	r := setupRouter(store, rec)
	r.NotFound(handleUI())

	server := &http.Server{Addr: *listenAddress, Handler: r}

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(server)
}
