package schema

import (
	"errors"
	"fmt"

	"github.com/spektr-org/crosstab/engine"
)

// ============================================================================
// SCHEMA — Describes the shape of a dataset for the cube engine
// ============================================================================
// Auto-discovered from CSV (DiscoverFromCSV) or written by hand as YAML/JSON.
// The dataset package turns a schema into registered mappers; saved requests
// become named factories in the same registry.
// ============================================================================

// Sentinel validation errors.
var (
	ErrNoColumns    = errors.New("schema has no dimensions or measures")
	ErrEmptyKey     = errors.New("column key is empty")
	ErrDuplicateKey = errors.New("duplicate column key")
	ErrBadRequest   = errors.New("invalid saved request")
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`

	// Saved cube requests, registered as named factories.
	Requests []engine.Request `json:"requests,omitempty" yaml:"requests,omitempty"`

	// Auto-discovery metadata
	DiscoveredFrom string          `json:"discoveredFrom,omitempty" yaml:"discoveredFrom,omitempty"`
	DiscoveredAt   string          `json:"discoveredAt,omitempty" yaml:"discoveredAt,omitempty"`
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skippedColumns,omitempty"`
}

// DimensionMeta describes a string column used for grouping and filtering.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	DisplayName     string   `json:"displayName" yaml:"displayName"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	SampleValues    []string `json:"sampleValues,omitempty" yaml:"sampleValues,omitempty"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"` // parent dimension key for hierarchies
	IsTemporal      bool     `json:"isTemporal,omitempty" yaml:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty" yaml:"temporalFormat,omitempty"` // e.g. "yyyy-MM", "QN-yyyy"
	Layout          string   `json:"layout,omitempty" yaml:"layout,omitempty"`                 // Go time layout when parseable
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinalityHint,omitempty"`
}

// MeasureMeta describes a numeric column used for reduction.
type MeasureMeta struct {
	Key            string `json:"key" yaml:"key"`
	DisplayName    string `json:"displayName" yaml:"displayName"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	Unit           string `json:"unit,omitempty" yaml:"unit,omitempty"` // "currency", "hours", "points", "percent", "units"
	IsSynthetic    bool   `json:"isSynthetic,omitempty" yaml:"isSynthetic,omitempty"`
	DefaultReducer string `json:"defaultReducer,omitempty" yaml:"defaultReducer,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column      string `json:"column" yaml:"column"`
	Reason      string `json:"reason" yaml:"reason"`
	Recoverable bool   `json:"recoverable" yaml:"recoverable"`
}

// DefaultDimension creates a DimensionMeta with display defaults.
func DefaultDimension(key, displayName string, samples []string) DimensionMeta {
	return DimensionMeta{
		Key:          key,
		DisplayName:  displayName,
		SampleValues: samples,
	}
}

// DefaultMeasure creates a MeasureMeta reduced by sum.
func DefaultMeasure(key, displayName string) MeasureMeta {
	return MeasureMeta{
		Key:            key,
		DisplayName:    displayName,
		DefaultReducer: "sum",
	}
}

// DefaultMeasure returns the first non-synthetic measure's key, or the first
// measure when every measure is synthetic, or "" for none.
func (c Config) DefaultMeasure() string {
	for _, m := range c.Measures {
		if !m.IsSynthetic {
			return m.Key
		}
	}
	if len(c.Measures) > 0 {
		return c.Measures[0].Key
	}
	return ""
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Dimension looks up a dimension by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Measure looks up a measure by key.
func (c Config) Measure(key string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if m.Key == key {
			return m, true
		}
	}
	return MeasureMeta{}, false
}

// DisplayName returns the display name of a column key, falling back to a
// title-cased form of the key itself.
func (c Config) DisplayName(key string) string {
	if d, ok := c.Dimension(key); ok && d.DisplayName != "" {
		return d.DisplayName
	}
	if m, ok := c.Measure(key); ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return toDisplayName(key)
}

// Validate checks column keys are present and unique across dimensions and
// measures, and that every saved request is well formed.
func (c Config) Validate() error {
	if len(c.Dimensions) == 0 && len(c.Measures) == 0 {
		return ErrNoColumns
	}

	seen := make(map[string]bool, len(c.Dimensions)+len(c.Measures))
	check := func(key string) error {
		if key == "" {
			return ErrEmptyKey
		}
		if seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = true
		return nil
	}

	for _, d := range c.Dimensions {
		if err := check(d.Key); err != nil {
			return err
		}
	}
	for _, m := range c.Measures {
		if err := check(m.Key); err != nil {
			return err
		}
	}

	for i, req := range c.Requests {
		if req.Name == "" {
			return fmt.Errorf("%w: request %d has no name", ErrBadRequest, i)
		}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBadRequest, req.Name, err)
		}
	}
	return nil
}
