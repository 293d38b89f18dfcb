// internal/recommendation/catalog.go
package recommendation

import "fmt"

// Category is an academic grouping areas map into.
type Category string

const (
	CategorySTEM             Category = "STEM"
	CategoryCienciasSociales Category = "CienciasSociales"
	CategoryHumanidades      Category = "Humanidades"
	CategorySalud            Category = "Salud"
	CategoryArtes            Category = "Artes"
)

// Categories lists every known category. Salud and Artes have programs
// but no area maps to them.
var Categories = []Category{
	CategorySTEM,
	CategoryCienciasSociales,
	CategoryHumanidades,
	CategorySalud,
	CategoryArtes,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Catalog holds the two lookup tables used by the engine. A Catalog is
// read-only once built; accessors hand out copies.
type Catalog struct {
	areaCategory map[Area]Category
	programs     map[Category][]string
}

// DefaultAreaCategories is the fixed area to category mapping.
func DefaultAreaCategories() map[Area]Category {
	return map[Area]Category{
		AreaIngles:             CategoryHumanidades,
		AreaMatematicas:        CategorySTEM,
		AreaSocialesCiudadanas: CategoryCienciasSociales,
		AreaCienciasNaturales:  CategorySTEM,
		AreaLecturaCritica:     CategoryHumanidades,
	}
}

// DefaultPrograms is the program catalog, ordered by priority.
func DefaultPrograms() map[Category][]string {
	return map[Category][]string{
		CategorySTEM: {
			"Ingeniería (Sistemas, Civil, Mecánica)",
			"Ciencias de la Computación",
			"Matemáticas Aplicadas",
			"Biología / Bioquímica",
		},
		CategoryCienciasSociales: {
			"Administración Pública",
			"Economía / Contabilidad",
			"Derecho",
			"Sociología / Antropología",
		},
		CategoryHumanidades: {
			"Filosofía / Literatura",
			"Lingüística / Traducción",
			"Historia / Arqueología",
			"Comunicación Social",
		},
		CategorySalud: {
			"Medicina",
			"Enfermería",
			"Psicología",
			"Salud Pública",
		},
		CategoryArtes: {
			"Artes Plásticas",
			"Música / Conservatorio",
			"Cine / Audiovisuales",
			"Diseño Gráfico",
		},
	}
}

// DefaultCatalog builds the catalog from the built-in tables. It panics
// if those tables are inconsistent.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultAreaCategories(), DefaultPrograms())
	if err != nil {
		panic(fmt.Sprintf("recommendation: invalid default catalog: %v", err))
	}
	return c
}

// NewCatalog copies the given tables. Every area must map to a known
// category. A category may have an empty program list.
func NewCatalog(areaCategory map[Area]Category, programs map[Category][]string) (*Catalog, error) {
	ac := make(map[Area]Category, len(Areas))
	for _, a := range Areas {
		cat, ok := areaCategory[a]
		if !ok {
			return nil, fmt.Errorf("area %s has no category", a)
		}
		if !cat.Valid() {
			return nil, fmt.Errorf("area %s maps to unknown category %q", a, cat)
		}
		ac[a] = cat
	}

	pr := make(map[Category][]string, len(programs))
	for cat, list := range programs {
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown category %q in program catalog", cat)
		}
		pr[cat] = append([]string(nil), list...)
	}

	return &Catalog{areaCategory: ac, programs: pr}, nil
}

// WithPrograms returns a new catalog that replaces the program lists of the
// given categories and keeps the rest.
func (c *Catalog) WithPrograms(overrides map[Category][]string) (*Catalog, error) {
	merged := make(map[Category][]string, len(c.programs)+len(overrides))
	for cat, list := range c.programs {
		merged[cat] = list
	}
	for cat, list := range overrides {
		merged[cat] = list
	}
	return NewCatalog(c.areaCategory, merged)
}

// CategoryOf returns the category an area maps to.
func (c *Catalog) CategoryOf(a Area) Category {
	return c.areaCategory[a]
}

// Programs returns a copy of the ordered program list for a category.
func (c *Catalog) Programs(cat Category) []string {
	return append([]string(nil), c.programs[cat]...)
}
