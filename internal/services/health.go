package services

import (
	"context"

	"gorm.io/gorm"

	"brhygiene/internal/database"
	"brhygiene/internal/logging"
)

// HealthResult is the body of GET /health.
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Healthy reports whether every dependency answered.
func (r *HealthResult) Healthy() bool {
	return r.Status == "healthy"
}

// HealthService implements the health service
type HealthService struct {
	db      *gorm.DB
	service string
	version string
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, service, version string) *HealthService {
	return &HealthService{db: db, service: service, version: version}
}

// Check implements the health check method
func (s *HealthService) Check(ctx context.Context) (*HealthResult, error) {
	result := &HealthResult{
		Status:   "healthy",
		Service:  s.service,
		Version:  s.version,
		Database: "ok",
	}
	if err := database.HealthCheck(ctx, s.db); err != nil {
		logging.For("health").WithError(err).Warn("database health check failed")
		result.Status = "degraded"
		result.Database = "unavailable"
	}
	return result, nil
}
