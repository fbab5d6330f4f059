package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-compass/internal/config"
	"ai-compass/internal/database"
	"ai-compass/internal/handlers"
	"ai-compass/internal/repos"
	"ai-compass/internal/search"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.Load())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newFileAdapter(cfg *config.Config) *repos.FileAdapter {
	return &repos.FileAdapter{
		UsersDir:     cfg.UsersDir,
		ToolsDir:     cfg.ToolsDir,
		ReviewsPath:  cfg.ReviewsFile,
		RequestsPath: cfg.RequestsFile,
	}
}

func serve(cfg *config.Config) error {
	db, err := database.InitDB(cfg.AuditDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		return err
	}

	r := repos.NewFileRepos(newFileAdapter(cfg), repos.NewSQLiteAdapter(db))

	var oracle search.Oracle
	if cfg.LLMAPIKey != "" {
		oracle = search.NewLLMClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	} else {
		log.Println("LLM_API_KEY not set, search uses the local ranker")
	}

	handler := handlers.NewHandler(r, oracle)

	// ================= SERVER =================
	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: handler.Routes(cfg.CORSOrigin, cfg.DevMode),
	}

	go func() {
		log.Printf("Server running at http://localhost%s (data: %s)", cfg.ServerPort, cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ================= SHUTDOWN =================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	log.Println("Server stopped")
	return nil
}
