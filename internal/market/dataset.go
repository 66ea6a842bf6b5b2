package market

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset is a static table of known figures keyed by location. It is the
// last tier before the sentinel in every chain, and also resolves municipal
// area codes for the statistics APIs.
type Dataset interface {
	Population(loc Location) (Population, bool)
	Construction(loc Location) (Construction, bool)
	Housing(loc Location) (Housing, bool)
	LandPrice(loc Location) (LandPrice, bool)
	HomePrices(loc Location) (HomePrices, bool)
	Competition(loc Location) (Competition, bool)
	AreaCode(loc Location) (string, bool)
}

//go:embed demo_dataset.yaml
var demoDatasetYAML []byte

// DatasetEntry is one area's row in a StaticDataset file.
type DatasetEntry struct {
	Prefecture   string        `yaml:"prefecture"`
	City         string        `yaml:"city"`
	AreaCode     string        `yaml:"area_code"`
	Population   *Population   `yaml:"population"`
	Construction *Construction `yaml:"construction"`
	Housing      *Housing      `yaml:"housing"`
	LandPrice    *LandPrice    `yaml:"land_price"`
	HomePrices   *HomePrices   `yaml:"home_prices"`
	Competition  *Competition  `yaml:"competition"`
}

type datasetFile struct {
	Areas []DatasetEntry `yaml:"areas"`
}

// StaticDataset is an in-memory Dataset.
type StaticDataset struct {
	entries map[Location]DatasetEntry
}

var _ Dataset = (*StaticDataset)(nil)

// NewStaticDataset indexes entries by location. Later entries win.
func NewStaticDataset(entries []DatasetEntry) *StaticDataset {
	d := &StaticDataset{entries: make(map[Location]DatasetEntry, len(entries))}
	for _, e := range entries {
		loc := Location{Prefecture: e.Prefecture, City: e.City}.normalized()
		d.entries[loc] = e
	}
	return d
}

// ParseDataset decodes a YAML dataset document.
func ParseDataset(data []byte) (*StaticDataset, error) {
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode dataset yaml: %w", err)
	}
	for i, e := range file.Areas {
		if e.Prefecture == "" || e.City == "" {
			return nil, fmt.Errorf("dataset entry %d: prefecture and city are required", i)
		}
	}
	return NewStaticDataset(file.Areas), nil
}

// LoadDatasetFile reads a YAML dataset from disk.
func LoadDatasetFile(path string) (*StaticDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return ParseDataset(data)
}

// DemoDataset returns the built-in demonstration table.
func DemoDataset() *StaticDataset {
	d, err := ParseDataset(demoDatasetYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded demo dataset: %v", err))
	}
	return d
}

func (d *StaticDataset) lookup(loc Location) (DatasetEntry, bool) {
	e, ok := d.entries[loc.normalized()]
	return e, ok
}

// Population implements Dataset.
func (d *StaticDataset) Population(loc Location) (Population, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.Population == nil {
		return Population{}, false
	}
	return *e.Population, true
}

// Construction implements Dataset.
func (d *StaticDataset) Construction(loc Location) (Construction, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.Construction == nil {
		return Construction{}, false
	}
	return *e.Construction, true
}

// Housing implements Dataset.
func (d *StaticDataset) Housing(loc Location) (Housing, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.Housing == nil {
		return Housing{}, false
	}
	return *e.Housing, true
}

// LandPrice implements Dataset.
func (d *StaticDataset) LandPrice(loc Location) (LandPrice, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.LandPrice == nil {
		return LandPrice{}, false
	}
	return *e.LandPrice, true
}

// HomePrices implements Dataset.
func (d *StaticDataset) HomePrices(loc Location) (HomePrices, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.HomePrices == nil {
		return HomePrices{}, false
	}
	return *e.HomePrices, true
}

// Competition implements Dataset.
func (d *StaticDataset) Competition(loc Location) (Competition, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.Competition == nil {
		return Competition{}, false
	}
	return *e.Competition, true
}

// AreaCode implements Dataset.
func (d *StaticDataset) AreaCode(loc Location) (string, bool) {
	e, ok := d.lookup(loc)
	if !ok || e.AreaCode == "" {
		return "", false
	}
	return e.AreaCode, true
}
