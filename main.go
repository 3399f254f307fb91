package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"

	"todo-api/config"
	"todo-api/database"
	"todo-api/handlers"
	"todo-api/middleware"
	"todo-api/store"
)

func main() {
	log.SetPrefix("[todo-api] ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	dialect, err := database.ParseDialect(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Invalid database driver: %v", err)
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Open(openCtx, dialect, cfg.Database.URL)
	cancelOpen()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	router := handlers.NewRouter(
		handlers.NewTaskHandler(store.New(db, dialect), cfg.PageSize),
		handlers.NewHealthHandler(db),
		middleware.NewTokenVerifier(cfg.JWTKey),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := startServer(srv); err != nil {
		db.Close()
		log.Fatalf("Failed to start server: %v", err)
	}

	// Operations run concurrently; the database outlives in-flight requests.
	serverDone := make(chan struct{})
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				defer close(serverDone)
				log.Println("Graceful shutdown initiated...")
				return srv.Shutdown(ctx)
			},
			"database": func(ctx context.Context) error {
				select {
				case <-serverDone:
				case <-ctx.Done():
				}
				return db.Close()
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// startServer binds srv's address and serves it in the background. A taken
// port is reported here rather than after the shutdown handler is installed.
func startServer(srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		log.Printf("Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()
	return nil
}
