package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"multichat/internal/api/handlers"
	"multichat/internal/app"
	"multichat/internal/auth"
	"multichat/internal/config"
	"multichat/internal/logger"
	"multichat/internal/proxy"
	"multichat/internal/repository/postgres"
	chatService "multichat/internal/service/chat"
)

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found")
	}

	logger.Configure()

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Log.Info("Initializing database...")
	database, err := postgres.NewPostgresDB(appConfig.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := postgres.SeedDemoUser(database); err != nil {
		logger.Log.WithError(err).Fatal("Failed to seed demo user")
	}

	cfg := app.NewConfig(database, appConfig, config.DefaultModelCatalog())

	// The completion proxy endpoint and the chat session layer that calls
	// it over HTTP.
	dispatcher := proxy.NewDispatcher(appConfig.Providers)
	proxyHandler := proxy.NewHandler(dispatcher)
	sessions := chatService.NewSessionManager(database, proxy.NewClient(appConfig.Proxy.URL), cfg.Models)

	authService := auth.NewService(appConfig.Auth, database)
	chatHandler := handlers.NewChatHandlers(cfg, sessions)

	mux := http.NewServeMux()

	corsHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.WriteHeader(http.StatusOK)
	}

	// Public routes
	mux.HandleFunc("POST /api/login", enableCORS(authService.LoginHandler))
	mux.HandleFunc("OPTIONS /api/login", corsHandler)
	mux.HandleFunc("POST /api/register", enableCORS(authService.RegisterHandler))
	mux.HandleFunc("OPTIONS /api/register", corsHandler)
	mux.HandleFunc("GET /api/health", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	mux.HandleFunc("OPTIONS /api/health", corsHandler)
	mux.HandleFunc("GET /api/models", enableCORS(chatHandler.GetModelsHandler))
	mux.HandleFunc("OPTIONS /api/models", corsHandler)

	// The proxy endpoint carries no auth; credentials stay server-side and
	// its error envelope is self-describing.
	mux.HandleFunc("POST /api/ai-proxy", enableCORS(proxyHandler.HandleCompletion))
	mux.HandleFunc("OPTIONS /api/ai-proxy", corsHandler)

	// Protected routes - method-based routing (Go 1.22+ native)
	mux.HandleFunc("POST /api/chat/send", enableCORS(authService.Middleware(chatHandler.SendMessageHandler)))
	mux.HandleFunc("OPTIONS /api/chat/send", corsHandler)
	mux.HandleFunc("POST /api/chat/new", enableCORS(authService.Middleware(chatHandler.NewChatHandler)))
	mux.HandleFunc("OPTIONS /api/chat/new", corsHandler)
	mux.HandleFunc("GET /api/conversations", enableCORS(authService.Middleware(chatHandler.GetConversationsHandler)))
	mux.HandleFunc("OPTIONS /api/conversations", corsHandler)

	// Protected parameterized routes (Go 1.22+ path parameters)
	mux.HandleFunc("GET /api/conversations/{id}/messages", enableCORS(authService.Middleware(chatHandler.GetConversationMessagesHandler)))
	mux.HandleFunc("OPTIONS /api/conversations/{id}/messages", corsHandler)
	mux.HandleFunc("PATCH /api/conversations/{id}", enableCORS(authService.Middleware(chatHandler.RenameConversationHandler)))
	mux.HandleFunc("DELETE /api/conversations/{id}", enableCORS(authService.Middleware(chatHandler.DeleteConversationHandler)))
	mux.HandleFunc("OPTIONS /api/conversations/{id}", corsHandler)

	port := appConfig.Server.Port
	logger.Log.WithField("port", port).Info("Server starting")
	logger.Log.Infof("Health check: http://localhost:%s/api/health", port)
	logger.Log.Infof("Completion proxy: http://localhost:%s/api/ai-proxy", port)
	logger.Log.Infof("Chat endpoint: http://localhost:%s/api/chat/send", port)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Log.WithError(err).Fatal("Server failed to start")
	}
}
