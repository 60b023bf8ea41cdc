// Package catalog serves the read-only product list.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brhygiene/internal/domain"
	"brhygiene/internal/logging"
	"brhygiene/internal/metrics"
)

// Source labels where a product list came from.
const (
	SourceDatabase = "database"
	SourceBuiltin  = "builtin"
)

//go:embed products.yaml
var builtinYAML []byte

// Default returns the built-in catalog.
func Default() []domain.Product {
	products, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in products.yaml is invalid: %v", err))
	}
	return products
}

// Parse decodes a YAML list of products and checks that every entry has an
// id and a name, and that ids are unique.
func Parse(data []byte) ([]domain.Product, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var products []domain.Product
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	seen := make(map[uint]bool, len(products))
	for i, p := range products {
		if p.ID == 0 {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: name is required", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("product %d: duplicate id", p.ID)
		}
		seen[p.ID] = true
	}
	return products, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Seed upserts products by id.
func Seed(ctx context.Context, db *gorm.DB, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&products).Error
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	return nil
}

// Catalog lists products from the database, falling back to a fixed list
// when the table is empty or unreachable.
type Catalog struct {
	db       *gorm.DB
	fallback []domain.Product
	timeout  time.Duration
	log      *logrus.Entry
}

// New creates a catalog. A nil fallback uses the built-in products.
func New(db *gorm.DB, fallback []domain.Product, timeout time.Duration) *Catalog {
	if fallback == nil {
		fallback = Default()
	}
	return &Catalog{
		db:       db,
		fallback: fallback,
		timeout:  timeout,
		log:      logging.For("catalog"),
	}
}

// List returns the products ordered by id and the source they came from.
func (c *Catalog) List(ctx context.Context) ([]domain.Product, string) {
	if c.db != nil {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var products []domain.Product
		start := time.Now()
		err := c.db.WithContext(ctx).Order("id").Find(&products).Error
		metrics.RecordDBQuery("product_list", time.Since(start), err)

		switch {
		case err != nil:
			c.log.WithError(err).Warn("product query failed, serving built-in catalog")
		case len(products) > 0:
			metrics.RecordCatalogRead(SourceDatabase)
			return products, SourceDatabase
		}
	}

	metrics.RecordCatalogRead(SourceBuiltin)
	out := make([]domain.Product, len(c.fallback))
	copy(out, c.fallback)
	return out, SourceBuiltin
}
