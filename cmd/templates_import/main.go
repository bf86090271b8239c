// Package main loads workout templates and movement names from a JSON file into postgres.
// Existing templates with the same id are replaced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/2beens/gymrunner/internal/config"
	"github.com/2beens/gymrunner/internal/db"
	"github.com/2beens/gymrunner/internal/gymstats/templates"
	"github.com/2beens/gymrunner/internal/gymstats/workout"
)

type importFile struct {
	Movements map[string]string  `json:"movements"`
	Templates []workout.Template `json:"templates"`
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	inputPath := flag.String("input", "./templates.json", "path to the JSON file with movements and templates")
	dryRun := flag.Bool("dry-run", false, "only validate the input file")
	flag.Parse()

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	var input importFile
	if err := json.Unmarshal(raw, &input); err != nil {
		log.Fatalf("decode input: %v", err)
	}
	for i := range input.Templates {
		if err := templates.ValidateTemplate(&input.Templates[i]); err != nil {
			log.Fatalf("template [%s]: %v", input.Templates[i].ID, err)
		}
		if input.Templates[i].ID == "" {
			log.Fatalf("template [%s]: id empty", input.Templates[i].Name)
		}
	}
	log.Printf("input ok: %d movements, %d templates", len(input.Movements), len(input.Templates))
	if *dryRun {
		return
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbParams := db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("GYMRUNNER_POSTGRES_PASS"),
	}
	if cfg.MigrationsPath != "" {
		if err := db.RunMigrations(dbParams.ConnString(), cfg.MigrationsPath); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	repo := templates.NewRepo(dbPool)
	for movementID, name := range input.Movements {
		if err := repo.SaveMovement(ctx, movementID, name); err != nil {
			log.Fatalf("save movement [%s]: %v", movementID, err)
		}
	}
	for i := range input.Templates {
		if err := repo.SaveTemplate(ctx, &input.Templates[i]); err != nil {
			log.Fatalf("save template [%s]: %v", input.Templates[i].ID, err)
		}
		log.Printf("template [%s] %s saved", input.Templates[i].ID, input.Templates[i].Name)
	}
}
