package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/classmark/classmark-engine/internal/api/http"
	"github.com/classmark/classmark-engine/internal/auth"
	"github.com/classmark/classmark-engine/internal/config"
	"github.com/classmark/classmark-engine/internal/db"
	"github.com/classmark/classmark-engine/internal/exam"
	"github.com/classmark/classmark-engine/internal/notify"
	"github.com/classmark/classmark-engine/internal/rbac"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh)

	// --- Evaluated-result fan-out ---
	sinks := notify.Fanout{notify.NewEventLog(dbh)}
	if cfg.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Fatalf("nats connect: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	finalizer := exam.NewFinalizer(store, sinks)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	users := &auth.LocalUsers{DB: dbh, AdminUser: cfg.AdminUser, AdminPassHash: cfg.AdminPassHash}
	guardians := &auth.Guardians{DB: dbh}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, users))
	}

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("exam:create")).
			Post("/exams", api.UploadExamHandler(store))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("exam:stats")).
			Get("/exams/{examID}/stats", api.ExamStatsHandler(store))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.CreateAttemptHandler(store))
		pr.With(rbac.Require("attempt:save")).
			Post("/attempts/{attemptID}/responses", api.SaveResponsesHandler(store))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store, guardians))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))

		// Results (student/parent review + grader views)
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/attempts/{attemptID}/result", api.GetResultHandler(store, finalizer, guardians))

		// Marking and finalization (graders)
		pr.With(rbac.Require("marking:view")).
			Get("/attempts/{attemptID}/marking", api.GetMarkingItemsHandler(finalizer))
		pr.With(rbac.Require("marking:apply")).
			Post("/attempts/{attemptID}/marks", api.ApplyMarksHandler(finalizer))
		pr.With(rbac.Require("result:finalize")).
			Post("/attempts/{attemptID}/finalize", api.FinalizeAttemptHandler(finalizer))

		// Users
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh, guardians))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
