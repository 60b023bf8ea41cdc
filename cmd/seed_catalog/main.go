package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/catalog"
	"brhygiene/internal/config"
	"brhygiene/internal/database"
	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
)

func main() {
	fileFlag := flag.String("file", "", "YAML catalog to load (default: CATALOG_FILE, then the built-in catalog)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logging.Init(cfg.App.Debug, cfg.App.LogFormat)
	log := logging.For("seed_catalog")

	path := *fileFlag
	if path == "" {
		path = cfg.Catalog.File
	}

	var products []domain.Product
	if path != "" {
		products, err = catalog.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	} else {
		products = catalog.Default()
	}

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalog.Seed(ctx, db, products); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}

	source := path
	if source == "" {
		source = "built-in"
	}
	log.WithFields(logrus.Fields{
		"products": len(products),
		"source":   source,
	}).Info("Catalog seeded")
}
