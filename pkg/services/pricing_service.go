package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"loomi-api/pkg/models"
	"loomi-api/pkg/pricing"
)

// PriceSheetName is the sheet written by ExportWorkbook.
const PriceSheetName = "Prices"

var priceSheetHeader = []interface{}{
	"product_id", "original_price", "dynamic_price", "discount_percent", "demand_factor", "time_factor",
}

var defaultMarketCategories = []string{"electronics", "clothing", "home", "beauty"}

// PricingService prices products and reports market trends.
type PricingService struct {
	calculator  *pricing.Calculator
	categories  []string
	concurrency int
	random      pricing.RandomSource
	now         func() time.Time
	outcomes    *prometheus.CounterVec
}

// NewPricingService creates a PricingService. Bulk requests price at most
// concurrency products at once; monitoring may be nil.
func NewPricingService(calculator *pricing.Calculator, categories []string, concurrency int, monitoring *MonitoringService) *PricingService {
	if len(categories) == 0 {
		categories = defaultMarketCategories
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	s := &PricingService{
		calculator:  calculator,
		categories:  categories,
		concurrency: concurrency,
		random:      systemRandom{},
		now:         time.Now,
	}
	if monitoring != nil {
		s.outcomes = monitoring.NewCounter("pricing_calculations_total", "Price calculations by outcome.", "outcome")
	}
	return s
}

// Calculate prices a single product.
func (s *PricingService) Calculate(ctx context.Context, req models.PricingRequest) (models.PricingResult, error) {
	result, err := s.calculator.Price(ctx, req)
	s.record(err)
	if err != nil {
		return models.PricingResult{}, err
	}
	log.Debug().
		Str("product_id", result.ProductID).
		Float64("original_price", result.OriginalPrice).
		Float64("dynamic_price", result.DynamicPrice).
		Msg("price calculated")
	return result, nil
}

// CalculateBulk prices every product of req concurrently. Results keep the
// input order. The first invalid product fails the whole batch.
func (s *PricingService) CalculateBulk(ctx context.Context, req models.BulkPricingRequest) (models.BulkPricingResponse, error) {
	for i, product := range req.Products {
		if err := pricing.Validate(product); err != nil {
			s.record(err)
			return models.BulkPricingResponse{}, errors.Wrapf(err, "products[%d]", i)
		}
	}

	results := make([]models.PricingResult, len(req.Products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, product := range req.Products {
		g.Go(func() error {
			result, err := s.Calculate(gctx, product)
			if err != nil {
				return errors.Wrapf(err, "products[%d]", i)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.BulkPricingResponse{}, err
	}

	return models.BulkPricingResponse{
		Results:          results,
		MarketConditions: req.MarketConditions,
	}, nil
}

// MarketTrends returns simulated price and demand movement per category.
func (s *PricingService) MarketTrends(_ context.Context) models.MarketTrendsResponse {
	trends := make(map[string]models.CategoryTrend, len(s.categories))
	for _, category := range s.categories {
		prefix := category
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		popular := make([]models.PopularProduct, 0, 3)
		for i := 1; i <= 3; i++ {
			popular = append(popular, models.PopularProduct{
				ID:   fmt.Sprintf("%s%d", prefix, i),
				Name: fmt.Sprintf("Popular %s item %d", category, i),
			})
		}
		trends[category] = models.CategoryTrend{
			AveragePriceChange: roundTo(uniform(s.random, -0.1, 0.1), 2),
			DemandChange:       roundTo(uniform(s.random, -0.2, 0.2), 2),
			PopularProducts:    popular,
		}
	}
	return models.MarketTrendsResponse{
		Trends: trends,
		AsOf:   s.now().Format(time.RFC3339),
	}
}

// ExportWorkbook renders results as a workbook with a single price sheet.
func (s *PricingService) ExportWorkbook(results []models.PricingResult) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, PriceSheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(PriceSheetName, "A1", &priceSheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.ProductID, r.OriginalPrice, r.DynamicPrice, r.DiscountPercent, r.Factors.Demand, r.Factors.Time,
		}
		if err := f.SetSheetRow(PriceSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// ImportPriceList reads pricing requests from an .xlsx or .csv price list.
// Header names are matched case-insensitively; rows without a product id are skipped.
// Workbook cells are read unformatted and CSV rows may omit trailing cells.
func (s *PricingService) ImportPriceList(r io.Reader, filename string) ([]models.PricingRequest, error) {
	var rows [][]string
	switch lower := strings.ToLower(filename); {
	case strings.HasSuffix(lower, ".xlsx"):
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, errors.Wrap(pricing.ErrInvalidInput, "failed to open workbook")
		}
		defer f.Close()
		rows, err = f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.Wrapf(pricing.ErrInvalidInput, "failed to read sheet: %v", err)
		}
	case strings.HasSuffix(lower, ".csv"):
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		var err error
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, errors.Wrapf(pricing.ErrInvalidInput, "failed to parse CSV: %v", err)
		}
	default:
		return nil, errors.Wrap(pricing.ErrInvalidInput, "unsupported file type, upload .xlsx or .csv")
	}

	if len(rows) < 2 {
		return nil, errors.Wrap(pricing.ErrInvalidInput, "price list needs a header row and at least one product")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idCol := findIndex(header, "product_id")
	priceCol := findIndex(header, "current_price", "price")
	userCol := findIndex(header, "user_id")
	if idCol == -1 || priceCol == -1 {
		return nil, errors.Wrapf(pricing.ErrInvalidInput, "missing product_id or current_price column in header %v", header)
	}

	requests := make([]models.PricingRequest, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNumber := i + 2
		productID := strings.TrimSpace(cellAt(row, idCol))
		if productID == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(cellAt(row, priceCol)), 64)
		if err != nil {
			return nil, errors.Wrapf(pricing.ErrInvalidInput, "row %d: invalid current_price %q", rowNumber, cellAt(row, priceCol))
		}
		req := models.PricingRequest{ProductID: productID, CurrentPrice: price}
		if userCol != -1 {
			req.UserID = strings.TrimSpace(cellAt(row, userCol))
		}
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return nil, errors.Wrap(pricing.ErrInvalidInput, "price list contains no products")
	}
	return requests, nil
}

func (s *PricingService) record(err error) {
	if s.outcomes == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.outcomes.WithLabelValues(outcome).Inc()
}

// findIndex returns the column of the first candidate present in header, or -1.
func findIndex(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range header {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func uniform(r pricing.RandomSource, low, high float64) float64 {
	return low + (high-low)*r.Float64()
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
