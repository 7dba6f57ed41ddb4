package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/yacine-dev/attendclass/attendance"
	"github.com/yacine-dev/attendclass/config"
	"github.com/yacine-dev/attendclass/database"
	"github.com/yacine-dev/attendclass/enrollment"
	"github.com/yacine-dev/attendclass/handlers"
	"github.com/yacine-dev/attendclass/recognition"
	"github.com/yacine-dev/attendclass/repository"
	"github.com/yacine-dev/attendclass/training"
	"github.com/yacine-dev/attendclass/vision"
	"github.com/yacine-dev/attendclass/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.StudentsPath, cfg.TeachersPath, cfg.ModelsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	seanceRepo := repository.NewSeanceRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	personStore := repository.NewPersonStore(studentRepo, teacherRepo)

	detector := vision.NewDNNFaceDetector(cfg.FaceDNNNetConfigPath, cfg.FaceDNNNetModelPath, cfg.DetectionScale)
	defer detector.Close()
	embedder := vision.NewFaceEmbedder(cfg.FaceEmbedderModelPath, cfg.FaceEmbedderModelName, nil)
	defer embedder.Close()

	camera := vision.NewCamera(cfg.CameraIndex, cfg.CameraWidth, cfg.CameraHeight, cfg.FrameQueueSize, float64(cfg.CameraFPS))

	recorder := attendance.NewRecorder(personStore, attendanceRepo)
	engine := recognition.NewEngine(&cfg, camera, detector, embedder, personStore, recorder)
	if err := engine.Load(); err != nil {
		log.Printf("Warning: recognition model not loaded yet: %v", err)
	}

	controller := enrollment.NewController(&cfg, camera, detector, personStore)
	trainer := training.NewTrainer(&cfg, embedder)
	trainingProcessor := workers.NewTrainingProcessor(trainer)
	defer trainingProcessor.Stop()

	watcher := attendance.NewWatcher(seanceRepo, engine, recorder, cfg.SeancePollInterval)
	watcher.Start()
	defer watcher.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Dataset root: %s", cfg.DatasetPath)
	log.Printf("Model artifacts: %s", cfg.ModelsPath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	personHandler := &handlers.PersonHandler{Students: studentRepo, Teachers: teacherRepo}
	seanceHandler := &handlers.SeanceHandler{Seances: seanceRepo, Watcher: watcher}
	enrollmentHandler := &handlers.EnrollmentHandler{Controller: controller}
	trainingHandler := &handlers.TrainingHandler{Processor: trainingProcessor}
	recognitionHandler := &handlers.RecognitionHandler{Engine: engine}
	attendanceHandler := &handlers.AttendanceHandler{Records: attendanceRepo}

	requireKey := handlers.RequireAPIKey(cfg.APIKeyHash)

	r.Route("/api", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Get("/", personHandler.ListStudents)
			r.Get("/{id}", personHandler.GetStudent)
		})
		r.Route("/teachers", func(r chi.Router) {
			r.Get("/", personHandler.ListTeachers)
			r.Get("/{id}", personHandler.GetTeacher)
		})
		r.Route("/seances", func(r chi.Router) {
			r.Get("/", seanceHandler.ListSeances)
			r.Get("/{id}", seanceHandler.GetSeance)
			r.With(requireKey).Post("/{id}/select", seanceHandler.SelectSeance)
			r.Get("/{id}/attendance", attendanceHandler.ListBySeance)
			r.Get("/{id}/attendance/summary", attendanceHandler.Summary)
		})
		r.Get("/watcher", seanceHandler.WatcherStatus)
		r.Route("/enrollment", func(r chi.Router) {
			r.With(requireKey).Post("/", enrollmentHandler.StartEnrollment)
			r.Get("/", enrollmentHandler.EnrollmentProgress)
			r.With(requireKey).Delete("/", enrollmentHandler.CancelEnrollment)
		})
		r.Route("/training", func(r chi.Router) {
			r.With(requireKey).Post("/", trainingHandler.StartTraining)
			r.Get("/", trainingHandler.TrainingStatus)
		})
		r.Route("/recognition", func(r chi.Router) {
			r.Get("/", recognitionHandler.RecognitionStatus)
			r.With(requireKey).Post("/reload", recognitionHandler.ReloadModel)
			r.Get("/preview", recognitionHandler.Preview)
		})
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	go func() {
		log.Printf("Starting server on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	if engine.Running() {
		engine.Stop()
	}
	camera.Stop()
	if err := server.Close(); err != nil {
		log.Printf("Error closing server: %v", err)
	}
	log.Println("Server stopped")
}
