// Package catalog holds the fixed table of payable services.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ecitizenpay/internal/models"
)

// Catalog is an immutable lookup of services by key. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	order    []string
	services map[string]models.ServiceDefinition
}

// New validates defs and builds a catalog that preserves their order.
func New(defs []models.ServiceDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	c := &Catalog{
		order:    make([]string, 0, len(defs)),
		services: make(map[string]models.ServiceDefinition, len(defs)),
	}
	for _, d := range defs {
		switch {
		case d.Key == "":
			return nil, fmt.Errorf("service %q: key is required", d.Name)
		case d.Name == "" || d.Code == "":
			return nil, fmt.Errorf("service %q: name and code are required", d.Key)
		case d.AmountKES <= 0:
			return nil, fmt.Errorf("service %q: amount must be positive", d.Key)
		}
		if _, dup := c.services[d.Key]; dup {
			return nil, fmt.Errorf("service %q defined twice", d.Key)
		}
		d.Requirements = append([]string(nil), d.Requirements...)
		c.services[d.Key] = d
		c.order = append(c.order, d.Key)
	}
	return c, nil
}

// Default returns the built-in county service table.
func Default() *Catalog {
	c, err := New(defaultServices)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Services []models.ServiceDefinition `yaml:"services"`
}

// LoadFile reads a YAML catalog of the form `services: [...]`.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Services)
}

// Load returns the file catalog when path is set, the built-in one otherwise.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Lookup returns the service registered under key.
func (c *Catalog) Lookup(key string) (models.ServiceDefinition, bool) {
	d, ok := c.services[key]
	if !ok {
		return models.ServiceDefinition{}, false
	}
	d.Requirements = append([]string(nil), d.Requirements...)
	return d, true
}

// All lists services in definition order.
func (c *Catalog) All() []models.ServiceDefinition {
	out := make([]models.ServiceDefinition, 0, len(c.order))
	for _, k := range c.order {
		d, _ := c.Lookup(k)
		out = append(out, d)
	}
	return out
}

var defaultServices = []models.ServiceDefinition{
	{
		Key:            "business_permit",
		Name:           "Business Permit Application",
		AmountKES:      2000,
		Code:           "BP001",
		Description:    "Single Business Permit - County Government",
		ProcessingTime: "7-14 working days",
		Requirements:   []string{"National ID copy", "Passport photo", "Location map", "Lease agreement"},
	},
	{
		Key:            "good_conduct",
		Name:           "Certificate of Good Conduct",
		AmountKES:      1050,
		Code:           "GC001",
		Description:    "Police Clearance Certificate",
		ProcessingTime: "2-3 working days",
		Requirements:   []string{"National ID original", "Passport photos (2)", "Fingerprints", "Application form"},
	},
	{
		Key:            "dl_renewal",
		Name:           "Driving License Renewal",
		AmountKES:      3050,
		Code:           "DL001",
		Description:    "Driving License Renewal - 3 Years",
		ProcessingTime: "1-2 working days",
		Requirements:   []string{"Expired driving license", "National ID copy", "Passport photo", "Medical certificate"},
	},
	{
		Key:            "marriage_cert",
		Name:           "Marriage Certificate",
		AmountKES:      500,
		Code:           "MC001",
		Description:    "Certified Copy of Marriage Certificate",
		ProcessingTime: "Same day service",
		Requirements:   []string{"National IDs of both parties", "Marriage certificate number", "Application form"},
	},
}
