package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luat-chat/internal/handlers"
	"luat-chat/pkg/chat"
	"luat-chat/pkg/config"
	"luat-chat/pkg/lawapi"
	"luat-chat/pkg/locator"
)

// version is set during build time via ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		backendURL  = flag.String("backend", "", "Backend URL (overrides profile config)")
		dbPath      = flag.String("db", "", "Database path (overrides profile config)")
		dataDir     = flag.String("data-dir", "", "Data directory (overrides profile config)")
		host        = flag.String("host", "", "Server host (overrides profile config)")
		port        = flag.Int("port", 0, "Server port (overrides profile config)")
		showVersion = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("luat-chat-server version %s\n", version)
		return nil
	}

	profileConfig, err := config.LoadProfile()
	if err != nil {
		return fmt.Errorf("failed to load profile config: %w", err)
	}

	// Override with command line flags
	if *backendURL != "" {
		profileConfig.Backend.URL = *backendURL
	}
	if *dbPath != "" {
		profileConfig.StoragePath = *dbPath
	}
	if *dataDir != "" {
		profileConfig.DataDir = *dataDir
	}
	if *host != "" {
		profileConfig.Server.Host = *host
	}
	if *port > 0 {
		profileConfig.Server.Port = *port
	}

	backendTimeout := time.Duration(profileConfig.Backend.TimeoutSeconds) * time.Second
	api := lawapi.NewWithTimeout(profileConfig.Backend.URL, backendTimeout)

	store, err := chat.NewStore(profileConfig.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to create chat store: %w", err)
	}
	if err := store.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize chat store: %w", err)
	}
	defer store.Close()

	manager := chat.NewManager(store, api, api)
	loc := locator.New(api,
		locator.WithCacheTTL(time.Duration(profileConfig.Locator.CacheTTLMinutes)*time.Minute))

	handler := handlers.NewWithVersion(manager, api, loc, version)

	mux := http.NewServeMux()
	mux.Handle("/api/ask", handler.Ask())
	mux.Handle("/api/conversations", handler.Conversations())
	mux.Handle("/api/conversations/", handler.Conversation())
	mux.Handle("/api/feedback", handler.Feedback())
	mux.Handle("/api/settings", handler.Settings())
	mux.Handle("/api/viewer", handler.ViewerCurrent())
	mux.Handle("/api/viewer/open", handler.ViewerOpen())
	mux.Handle("/api/viewer/page", handler.ViewerPage())
	mux.Handle("/api/viewer/close", handler.ViewerClose())
	mux.Handle("/api/health", handler.Health())
	mux.Handle("/api/metrics", handler.Metrics())
	mux.Handle("/static/", handler.Static())
	mux.Handle("/", handler.ChatPage())

	addr := fmt.Sprintf("%s:%d", profileConfig.Server.Host, profileConfig.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingMiddleware(mux),
		// WriteTimeout must outlast the backend round trip, which can
		// take the full answer generation window.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: backendTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting luat-chat-server version %s on %s (backend %s)", version, addr, api.BaseURL())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
