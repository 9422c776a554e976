package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/consent/models"
)

func TestEmbeddedCatalogParses(t *testing.T) {
	c, err := Parse(embedded)
	require.NoError(t, err)
	assert.NotEmpty(t, c.All())
	assert.Same(t, Default(), Default())
}

func TestGroupedByCategory(t *testing.T) {
	grouped := Default().GroupedByCategory()
	assert.Len(t, grouped, len(models.AllCategories))

	names := func(defs []CookieDefinition) []string {
		var out []string
		for _, d := range defs {
			out = append(out, d.Name)
		}
		return out
	}
	assert.Contains(t, names(grouped[models.CategoryEssential]), models.CookieName)
	assert.Contains(t, names(grouped[models.CategoryAnalytics]), "_ga")
}

func TestNonEssential(t *testing.T) {
	for _, def := range Default().NonEssential() {
		assert.NotEqual(t, models.CategoryEssential, def.Category, def.ID)
	}
	assert.NotEmpty(t, Default().ByCategory(models.CategoryMarketing))
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown yaml key": `
cookies:
  - id: a
    category: analytics
    name: a
    description: d
    colour: red
`,
		"unknown category": `
cookies:
  - id: a
    category: tracking
    name: a
    description: d
`,
		"duplicate id": `
cookies:
  - id: a
    category: analytics
    name: a
    description: d
  - id: a
    category: marketing
    name: b
    description: d
`,
		"missing name": `
cookies:
  - id: a
    category: analytics
    description: d
`,
		"bad same site": `
cookies:
  - id: a
    category: analytics
    name: a
    description: d
    sameSite: sometimes
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Name = "mutated"
	assert.NotEqual(t, "mutated", c.All()[0].Name)
}
