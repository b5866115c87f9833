package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	api "github.com/testbankhq/testbank/internal/api/http"
	"github.com/testbankhq/testbank/internal/auth"
	"github.com/testbankhq/testbank/internal/bank"
	"github.com/testbankhq/testbank/internal/config"
	"github.com/testbankhq/testbank/internal/db"
	"github.com/testbankhq/testbank/internal/qti"
	"github.com/testbankhq/testbank/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "testbank",
		Short: "QTI test-bank import service",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE:  runServe,
	}
	cmd.Flags().StringP("addr", "a", "", "HTTP listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	gw := bank.NewSQLGateway(dbh, cfg.DBDriver)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	authSvc := auth.NewService(cfg.AuthSecret, cfg.AdminUser, cfg.AdminPassHash)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	r.Route("/assets", func(ar chi.Router) {
		api.MountAssets(ar, bs)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Post("/courses", api.CreateCourseHandler(gw))
		pr.Post("/qti/import", api.ImportQTIHandler(gw, bs))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	return http.ListenAndServe(cfg.HTTPAddr, r)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <package.zip>",
		Short: "Import a QTI package from disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.StringP("course", "c", "", "Course code to import into (required)")
	f.Bool("publisher", false, "Own imported questions by the course's textbook")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	code, _ := cmd.Flags().GetString("course")
	publisher, _ := cmd.Flags().GetBool("publisher")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	gw := bank.NewSQLGateway(dbh, cfg.DBDriver)
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	course, created, err := gw.GetOrCreateCourse(ctx, code, bank.Course{Name: code})
	if err != nil {
		return fmt.Errorf("course lookup: %w", err)
	}
	if created {
		log.Printf("created course %s", code)
	}

	im := &qti.Importer{Gateway: gw, Blobs: bs, TextbookOwned: publisher}
	res, err := im.ImportArchive(ctx, data, course)
	if err != nil {
		return err
	}

	for _, t := range res.Tests {
		fmt.Printf("created test %s (%s)\n", t.Title, t.ID)
	}
	for _, wmsg := range res.Warnings {
		fmt.Printf("warning: %s\n", wmsg)
	}
	for _, f := range res.Failures {
		fmt.Printf("failed package %s: %s\n", f.Folder, f.Reason)
	}
	return nil
}
