package main

import (
	"context"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/pkg/config"
	"github.com/campusops/attendance-portal/pkg/database"
	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/joho/godotenv"
)

// Seeds a demo faculty, a demo student, and two sample events. Running it
// twice is a no-op.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.MigrateUp(ctx, pool); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	users := postgres.NewUserRepo(pool)
	eventsRepo := postgres.NewEventRepo(pool)

	existing, err := users.FindByEmailAndRole(ctx, "faculty@campus.edu", domain.RoleFaculty)
	if err != nil {
		logger.Error("Seed check failed", "error", err)
		os.Exit(1)
	}
	if existing != nil {
		logger.Info("Demo data already present, nothing to do")
		return
	}

	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		logger.Error("Failed to hash demo password", "error", err)
		os.Exit(1)
	}

	faculty, err := users.Create(ctx, "Julius Peter Simon", "faculty@campus.edu", hash, domain.RoleFaculty, "F-1001", "Computer Science")
	if err != nil {
		logger.Error("Failed to create demo faculty", "error", err)
		os.Exit(1)
	}

	if _, err := users.Create(ctx, "Troy Justine Au", "student@campus.edu", hash, domain.RoleStudent, "20-00123", "BSIT-3"); err != nil {
		logger.Error("Failed to create demo student", "error", err)
		os.Exit(1)
	}

	if _, err := eventsRepo.Create(ctx,
		"CITE General Assembly",
		"Mandatory assembly for all IT students regarding new policies.",
		time.Now().Add(48*time.Hour), "University Gym", faculty.ID, true, 150.00,
	); err != nil {
		logger.Error("Failed to create demo event", "error", err)
		os.Exit(1)
	}

	if _, err := eventsRepo.Create(ctx,
		"Tech Talk: AI in 2026",
		"A seminar on the future of Artificial Intelligence.",
		time.Now().Add(72*time.Hour), "AVR 1", faculty.ID, false, 0,
	); err != nil {
		logger.Error("Failed to create demo event", "error", err)
		os.Exit(1)
	}

	logger.Info("Demo data seeded",
		"faculty", "faculty@campus.edu",
		"student", "student@campus.edu",
		"password", "password123",
	)
}
