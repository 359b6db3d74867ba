package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Supplier is a restocking partner used by the inventory check.
type Supplier struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	LeadTime    int     `yaml:"lead_time"`   // days
	Reliability float64 `yaml:"reliability"` // 0-1
}

// SupplyRisk is a known risk for a product category.
type SupplyRisk struct {
	ProductCategory      string `yaml:"product_category"`
	RiskLevel            string `yaml:"risk_level"`
	PrimaryRisk          string `yaml:"primary_risk"`
	AlternativeSuppliers int    `yaml:"alternative_suppliers"`
}

// CatalogProduct is a product returned by visual search.
type CatalogProduct struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Price      float64 `yaml:"price"`
	Image      string  `yaml:"image"`
	Similarity float64 `yaml:"similarity"`
}

// Catalog bundles the reference data shared by the pricing, supply-chain and assistant services.
type Catalog struct {
	Suppliers            []Supplier       `yaml:"suppliers"`
	SupplyRisks          []SupplyRisk     `yaml:"supply_risks"`
	MarketCategories     []string         `yaml:"market_categories"`
	VisualSearchProducts []CatalogProduct `yaml:"visual_search_products"`
}

// LoadCatalog reads the catalog from path, or the bundled default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	for _, s := range catalog.Suppliers {
		if s.Reliability < 0 || s.Reliability > 1 {
			return nil, fmt.Errorf("supplier %s: reliability %.2f out of range [0,1]", s.ID, s.Reliability)
		}
		if s.LeadTime < 0 {
			return nil, fmt.Errorf("supplier %s: negative lead time", s.ID)
		}
	}
	return &catalog, nil
}
