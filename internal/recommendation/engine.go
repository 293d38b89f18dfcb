// internal/recommendation/engine.go
package recommendation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TopArea is one of the two highest scoring areas of a student.
type TopArea struct {
	Area     Area     `json:"area"`
	Score    float64  `json:"puntuacion"`
	Category Category `json:"categoria"`
}

// Recommendation is a suggested program at position 1 or 2.
type Recommendation struct {
	Position  int      `json:"posicion"`
	Program   string   `json:"carrera"`
	Category  Category `json:"categoria"`
	Reason    string   `json:"razon"`
	Relevance float64  `json:"relevancia"`
}

// Result is the outcome of one recommendation cycle.
type Result struct {
	TopAreas        []TopArea        `json:"top_areas"`
	Recommendations []Recommendation `json:"recomendaciones"`
}

// Branch reports which generation rule produced a result.
type Branch string

const (
	BranchSameCategory      Branch = "same_category"
	BranchDifferentCategory Branch = "different_category"
)

// Branch returns the rule that applies to the result's top areas.
func (r *Result) Branch() Branch {
	if len(r.TopAreas) == 2 && r.TopAreas[0].Category == r.TopAreas[1].Category {
		return BranchSameCategory
	}
	return BranchDifferentCategory
}

// Engine maps score records to recommendations. It keeps no state besides
// its catalog and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
}

// NewEngine builds an engine over catalog, or the default catalog when nil.
func NewEngine(catalog *Catalog) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{catalog: catalog}
}

// Catalog returns the engine's lookup tables.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

type areaScore struct {
	area  Area
	score float64
}

// Recommend computes the two top areas and up to two program
// recommendations. It fails with *MissingAreaError when any area is absent.
func (e *Engine) Recommend(scores ScoreRecord) (*Result, error) {
	if missing := scores.Missing(); len(missing) > 0 {
		return nil, &MissingAreaError{Areas: missing}
	}

	top := e.topAreas(scores)

	result := &Result{
		TopAreas: []TopArea{
			{Area: top[0].area, Score: top[0].score, Category: e.catalog.CategoryOf(top[0].area)},
			{Area: top[1].area, Score: top[1].score, Category: e.catalog.CategoryOf(top[1].area)},
		},
	}
	result.Recommendations = e.generate(top, result.TopAreas[0].Category, result.TopAreas[1].Category)

	return result, nil
}

func (e *Engine) topAreas(scores ScoreRecord) []areaScore {
	pairs := make([]areaScore, 0, len(Areas))
	for _, a := range Areas {
		pairs = append(pairs, areaScore{area: a, score: scores[a]})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})
	return pairs[:2]
}

func (e *Engine) generate(top []areaScore, first, second Category) []Recommendation {
	recs := make([]Recommendation, 0, 2)

	if first == second {
		programs := e.catalog.programs[first]
		if len(programs) >= 2 {
			recs = append(recs,
				Recommendation{
					Position:  1,
					Program:   programs[0],
					Category:  first,
					Reason:    fmt.Sprintf("Excelente desempeño en %s (%.0f/100)", top[0].area, top[0].score),
					Relevance: relevance(top[0].score / 100),
				},
				Recommendation{
					Position:  2,
					Program:   programs[1],
					Category:  first,
					Reason:    fmt.Sprintf("Fuerte desempeño en %s (%.0f/100)", top[1].area, top[1].score),
					Relevance: relevance(top[1].score / 100),
				},
			)
			return recs
		}

		combined := relevance((top[0].score + top[1].score) / 200)
		for i, program := range programs {
			recs = append(recs, Recommendation{
				Position:  i + 1,
				Program:   program,
				Category:  first,
				Reason:    fmt.Sprintf("Desempeño destacado en %s", first),
				Relevance: combined,
			})
		}
		return recs
	}

	for i, cat := range []Category{first, second} {
		programs := e.catalog.programs[cat]
		if len(programs) == 0 {
			continue
		}
		recs = append(recs, Recommendation{
			Position:  i + 1,
			Program:   programs[0],
			Category:  cat,
			Reason:    fmt.Sprintf("Fuerte desempeño en %s (%.0f/100)", top[i].area, top[i].score),
			Relevance: relevance(top[i].score / 100),
		})
	}
	return recs
}

// relevance caps v at 1 and rounds it to two decimals.
func relevance(v float64) float64 {
	return round2(math.Min(v, 1.0))
}

// round2 rounds half to even on the exact binary value.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// String renders a result as the human-readable block printed by the CLI.
func (r *Result) String() string {
	var b strings.Builder
	b.WriteString("ÁREAS TOP:\n")
	for _, t := range r.TopAreas {
		fmt.Fprintf(&b, "  %s: %.0f/100 -> Categoría: %s\n", t.Area, t.Score, t.Category)
	}
	b.WriteString("RECOMENDACIONES:\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  Opción %d: %s\n", rec.Position, rec.Program)
		fmt.Fprintf(&b, "    Categoría: %s\n", rec.Category)
		fmt.Fprintf(&b, "    Razón: %s\n", rec.Reason)
		fmt.Fprintf(&b, "    Relevancia: %.0f%%\n", rec.Relevance*100)
	}
	return b.String()
}
