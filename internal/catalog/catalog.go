package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	appLog "lusocal/internal/log"
	"lusocal/internal/model"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is the static configuration the calendar is synthesized from.
// A nil collection means the key was missing from the source document.
type Catalog struct {
	Recurring    []model.RecurringActivitySpec `yaml:"recurring" validate:"required"`
	Celebrations []model.CelebrationSpec       `yaml:"celebrations" validate:"required"`
	University   []model.UniversityEventSpec   `yaml:"university" validate:"required"`
}

// ErrMissingCollection is returned when one of the three collections is absent.
var ErrMissingCollection = errors.New("catalog: missing required collection")

var validate = validator.New()

// Validate checks that every collection is present. Individual entries are
// validated later, one by one, so that a bad entry never rejects the
// catalog.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: catalog is nil", ErrMissingCollection)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingCollection, verrs[0].Field())
		}
		return err
	}
	return nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the catalog at path. An empty path selects the embedded
// default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		appLog.Info("catalog: using embedded default")
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	appLog.Info("catalog loaded",
		"path", path,
		"recurring", len(c.Recurring),
		"celebrations", len(c.Celebrations),
		"university", len(c.University),
	)
	return c, nil
}
