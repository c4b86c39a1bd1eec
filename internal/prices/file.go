package prices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"alpha_innotec_planner/internal/models"
)

// ErrInvalidPrices is returned for price files that break the From < Till rule.
var ErrInvalidPrices = errors.New("invalid spot prices")

// Source provides the spot price series for a run.
type Source interface {
	Load(ctx context.Context) ([]models.SpotPrice, error)
}

// document is the on-disk shape. JSON files parse the same way since JSON
// is valid YAML.
type document struct {
	SpotPrices []models.SpotPrice `yaml:"spotPrices"`
}

// FileSource reads spot prices from a YAML or JSON file written by an
// external price importer.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads the file and returns the prices ordered by From.
func (s *FileSource) Load(ctx context.Context) ([]models.SpotPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read spot prices: %w", err)
	}
	return Parse(data)
}

// Parse decodes a price document and checks every entry.
func Parse(data []byte) ([]models.SpotPrice, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode spot prices: %w", err)
	}
	for i, p := range doc.SpotPrices {
		if !p.From.Before(p.Till) {
			return nil, fmt.Errorf("%w: entry %d from %s is not before till %s", ErrInvalidPrices, i, p.From, p.Till)
		}
	}
	out := slices.Clone(doc.SpotPrices)
	slices.SortStableFunc(out, func(a, b models.SpotPrice) int { return a.From.Compare(b.From) })
	return out, nil
}

// Static serves a fixed price series; used by the simulator and tests.
type Static []models.SpotPrice

func (s Static) Load(ctx context.Context) ([]models.SpotPrice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone([]models.SpotPrice(s)), nil
}
