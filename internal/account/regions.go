package account

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

type Region struct {
	Name    string   `yaml:"name" json:"nombre"`
	Comunas []string `yaml:"comunas" json:"comunas"`
}

// Regions is the region -> comuna directory used by the registration form.
type Regions struct {
	list  []Region
	index map[string]map[string]struct{}
}

func LoadRegions(b []byte) (*Regions, error) {
	var doc struct {
		Regions []Region `yaml:"regions"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	r := &Regions{list: doc.Regions, index: make(map[string]map[string]struct{}, len(doc.Regions))}
	for _, reg := range doc.Regions {
		set := make(map[string]struct{}, len(reg.Comunas))
		for _, c := range reg.Comunas {
			set[c] = struct{}{}
		}
		r.index[reg.Name] = set
	}
	return r, nil
}

// DefaultRegions parses the embedded directory; it panics on a broken build.
func DefaultRegions() *Regions {
	r, err := LoadRegions(regionsYAML)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Regions) List() []Region { return r.list }

func (r *Regions) Has(region, comuna string) bool {
	set, ok := r.index[region]
	if !ok {
		return false
	}
	_, ok = set[comuna]
	return ok
}
