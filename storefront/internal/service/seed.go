package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	DishesFile     = "source_data.csv"
	CategoriesFile = "category.csv"
)

type SeedResult struct {
	Categories int `json:"categories"`
	Dishes     int `json:"dishes"`
}

// Seeder bulk-loads the catalog from pipe-delimited files. The first line
// of each file is a header.
type Seeder struct {
	catalog CatalogRepository
	logger  logrus.FieldLogger
}

func NewSeeder(catalog CatalogRepository, logger logrus.FieldLogger) *Seeder {
	return &Seeder{
		catalog: catalog,
		logger:  logger.WithField("component", "seeder"),
	}
}

// LoadDir reads category.csv and source_data.csv from dir. A missing file
// counts as empty.
func (s *Seeder) LoadDir(ctx context.Context, dir string) (*SeedResult, error) {
	categories, err := readSeedFile(filepath.Join(dir, CategoriesFile), ParseCategories)
	if err != nil {
		return nil, err
	}
	dishes, err := readSeedFile(filepath.Join(dir, DishesFile), ParseDishes)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, categories, dishes)
}

func (s *Seeder) Load(ctx context.Context, categories []domain.Category, dishes []domain.Dish) (*SeedResult, error) {
	if err := s.catalog.BulkLoad(ctx, categories, dishes); err != nil {
		return nil, fmt.Errorf("bulk load: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"categories": len(categories),
		"dishes":     len(dishes),
	}).Info("catalog seeded")
	return &SeedResult{Categories: len(categories), Dishes: len(dishes)}, nil
}

func readSeedFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ParseCategories reads "id|title" lines.
func ParseCategories(r io.Reader) ([]domain.Category, error) {
	var categories []domain.Category
	err := scanRecords(r, 2, func(line int, fields []string) error {
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return fmt.Errorf("line %d: bad category id %q", line, fields[0])
		}
		categories = append(categories, domain.Category{ID: id, Title: fields[1]})
		return nil
	})
	return categories, err
}

// ParseDishes reads "id|title|price|description|picture|category_id" lines.
func ParseDishes(r io.Reader) ([]domain.Dish, error) {
	var dishes []domain.Dish
	err := scanRecords(r, 6, func(line int, fields []string) error {
		nums := make([]int, 3)
		for i, pos := range []int{0, 2, 5} {
			n, err := strconv.Atoi(strings.TrimSpace(fields[pos]))
			if err != nil {
				return fmt.Errorf("line %d: field %d is not a number: %q", line, pos+1, fields[pos])
			}
			nums[i] = n
		}
		dishes = append(dishes, domain.Dish{
			ID:          nums[0],
			Title:       fields[1],
			Price:       nums[1],
			Description: fields[3],
			Picture:     fields[4],
			CategoryID:  nums[2],
		})
		return nil
	})
	return dishes, err
}

// scanRecords skips the header and any line with fewer than minFields
// fields.
func scanRecords(r io.Reader, minFields int, fn func(line int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimRight(scanner.Text(), "\r")
		fields := strings.Split(text, "|")
		if len(fields) < minFields {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}
