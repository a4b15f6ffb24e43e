// Package seed loads product seed files and inserts them through the
// product service.
//
// A seed file is CSV with the columns name,category,price,description,brand.
// A first row whose first cell is "name" is treated as a header. Sources may
// be local paths or http(s) URLs; a ".gz" suffix means gzip-compressed.
package seed

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/products-api/internal/models"
	"github.com/Lixing-Zhang/products-api/internal/repository"
	"github.com/shopspring/decimal"
)

const fieldsPerRecord = 5

// Creator is the part of the product service the seeder writes through
type Creator interface {
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
}

// Loader reads seed sources
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader whose URL downloads time out after timeout
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{client: &http.Client{Timeout: timeout}}
}

// sourceResult holds the result of loading a single source
type sourceResult struct {
	index    int
	products []models.ProductInput
	err      error
}

// Load reads every source concurrently. The returned products keep source
// order, then row order. Any failing source fails the whole load.
func (l *Loader) Load(ctx context.Context, sources []string) ([]models.ProductInput, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no seed sources provided")
	}

	resultChan := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			products, err := l.loadSource(ctx, source)
			resultChan <- sourceResult{index: index, products: products, err: err}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]sourceResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	var products []models.ProductInput
	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("seed source %s: %w", sources[i], result.err)
		}
		products = append(products, result.products...)
	}
	return products, nil
}

func (l *Loader) loadSource(ctx context.Context, source string) ([]models.ProductInput, error) {
	body, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var r io.Reader = body
	if strings.HasSuffix(source, ".gz") {
		gzReader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	return Parse(r)
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse reads seed rows from r
func Parse(r io.Reader) ([]models.ProductInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fieldsPerRecord
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var products []models.ProductInput
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading seed file: %w", err)
		}
		if line == 1 && strings.EqualFold(record[0], "name") {
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price %q", line, record[2])
		}

		in := models.ProductInput{
			Name:     strings.TrimSpace(record[0]),
			Category: strings.TrimSpace(record[1]),
			Price:    price,
			Brand:    strings.TrimSpace(record[4]),
		}
		if in.Name == "" || in.Category == "" || in.Brand == "" {
			return nil, fmt.Errorf("row %d: name, category and brand are required", line)
		}
		if desc := strings.TrimSpace(record[3]); desc != "" {
			in.Description = &desc
		}
		products = append(products, in)
	}
	return products, nil
}

// Result counts what Apply did
type Result struct {
	Added   int
	Skipped int
}

// Apply inserts products one at a time. Names that already exist are
// skipped, any other failure stops the run.
func Apply(ctx context.Context, svc Creator, products []models.ProductInput) (Result, error) {
	var res Result
	for _, in := range products {
		_, err := svc.CreateProduct(ctx, in)
		switch {
		case errors.Is(err, repository.ErrDuplicateProduct):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("seed product %q: %w", in.Name, err)
		default:
			res.Added++
		}
	}
	return res, nil
}
