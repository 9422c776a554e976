// Package catalog loads the static cookie disclosure list embedded at build time.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"cookiegate/internal/consent/models"
	"cookiegate/pkg/validation"
)

//go:embed cookies.yaml
var embedded []byte

// CookieDefinition describes one literal cookie the site or a gated
// integration may set.
type CookieDefinition struct {
	ID          string          `yaml:"id" json:"id" validate:"required"`
	Category    models.Category `yaml:"category" json:"category" validate:"required"`
	Name        string          `yaml:"name" json:"name" validate:"required"`
	Domain      string          `yaml:"domain,omitempty" json:"domain,omitempty"`
	Secure      bool            `yaml:"secure" json:"secure"`
	SameSite    string          `yaml:"sameSite" json:"sameSite" validate:"omitempty,oneof=Strict Lax None"`
	MaxAge      int             `yaml:"maxAge" json:"maxAge" validate:"min=0"`
	Description string          `yaml:"description" json:"description" validate:"required"`
	Purpose     string          `yaml:"purpose" json:"purpose"`
	Provider    string          `yaml:"provider" json:"provider"`
	PolicyLink  string          `yaml:"policyLink,omitempty" json:"policyLink,omitempty" validate:"omitempty,url"`
}

type document struct {
	Cookies []CookieDefinition `yaml:"cookies"`
}

// Catalog is a read-only cookie catalog.
type Catalog struct {
	cookies []CookieDefinition
}

// Parse decodes a catalog document. Unknown YAML keys, unknown categories and
// duplicate ids are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode cookie catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Cookies))
	for i, c := range doc.Cookies {
		if err := validation.Validate(&c); err != nil {
			return nil, fmt.Errorf("cookie catalog entry %d: %w", i, err)
		}
		if !c.Category.IsValid() {
			return nil, fmt.Errorf("cookie catalog entry %q: unknown category %q", c.ID, c.Category)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("cookie catalog entry %q: duplicate id", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return &Catalog{cookies: doc.Cookies}, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. The embedded file is validated by
// tests, so a parse failure here is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

// All returns a copy of every definition in file order.
func (c *Catalog) All() []CookieDefinition {
	out := make([]CookieDefinition, len(c.cookies))
	copy(out, c.cookies)
	return out
}

// ByCategory returns the definitions for one category.
func (c *Catalog) ByCategory(category models.Category) []CookieDefinition {
	var out []CookieDefinition
	for _, def := range c.cookies {
		if def.Category == category {
			out = append(out, def)
		}
	}
	return out
}

// GroupedByCategory returns every category (even empty ones) mapped to its definitions.
func (c *Catalog) GroupedByCategory() map[models.Category][]CookieDefinition {
	out := make(map[models.Category][]CookieDefinition, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		out[cat] = []CookieDefinition{}
	}
	for _, def := range c.cookies {
		out[def.Category] = append(out[def.Category], def)
	}
	return out
}

// NonEssential returns the definitions revocation must purge.
func (c *Catalog) NonEssential() []CookieDefinition {
	var out []CookieDefinition
	for _, def := range c.cookies {
		if !def.Category.IsEssential() {
			out = append(out, def)
		}
	}
	return out
}
