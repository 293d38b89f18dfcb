// internal/recommendation/areas.go
package recommendation

// Area is one of the five scored subjects of the exam.
type Area string

const (
	AreaIngles             Area = "Ingles"
	AreaMatematicas        Area = "Matematicas"
	AreaSocialesCiudadanas Area = "SocialesCiudadanas"
	AreaCienciasNaturales  Area = "CienciasNaturales"
	AreaLecturaCritica     Area = "LecturaCritica"
)

// Areas is the canonical declaration order. Ties in score are broken by
// position in this slice, earlier wins.
var Areas = []Area{
	AreaIngles,
	AreaMatematicas,
	AreaSocialesCiudadanas,
	AreaCienciasNaturales,
	AreaLecturaCritica,
}

var areaColumns = map[Area]string{
	AreaIngles:             "PUNT_INGLES",
	AreaMatematicas:        "PUNT_MATEMATICAS",
	AreaSocialesCiudadanas: "PUNT_SOCIALES_CIUDADANAS",
	AreaCienciasNaturales:  "PUNT_C_NATURALES",
	AreaLecturaCritica:     "PUNT_LECTURA_CRITICA",
}

var areaFields = map[Area]string{
	AreaIngles:             "punt_ingles",
	AreaMatematicas:        "punt_matematicas",
	AreaSocialesCiudadanas: "punt_sociales_ciudadanas",
	AreaCienciasNaturales:  "punt_c_naturales",
	AreaLecturaCritica:     "punt_lectura_critica",
}

// Column returns the dataset column holding the area score (PUNT_*).
func (a Area) Column() string {
	return areaColumns[a]
}

// Field returns the lower-case field name used by the HTTP API.
func (a Area) Field() string {
	return areaFields[a]
}

// Valid reports whether a is one of the five known areas.
func (a Area) Valid() bool {
	_, ok := areaColumns[a]
	return ok
}

// AreaFromColumn resolves a PUNT_* dataset column.
func AreaFromColumn(column string) (Area, bool) {
	for _, a := range Areas {
		if areaColumns[a] == column {
			return a, true
		}
	}
	return "", false
}

// AreaFromField resolves an API field name such as punt_ingles.
func AreaFromField(field string) (Area, bool) {
	for _, a := range Areas {
		if areaFields[a] == field {
			return a, true
		}
	}
	return "", false
}

// ScoreRecord maps each area to a score in [0,100]. Range is the caller's
// responsibility; only key presence is checked by the engine.
type ScoreRecord map[Area]float64

// Missing returns the areas absent from the record, in canonical order.
func (s ScoreRecord) Missing() []Area {
	var missing []Area
	for _, a := range Areas {
		if _, ok := s[a]; !ok {
			missing = append(missing, a)
		}
	}
	return missing
}

// ByField re-keys the record with API field names.
func (s ScoreRecord) ByField() map[string]float64 {
	out := make(map[string]float64, len(s))
	for a, v := range s {
		out[a.Field()] = v
	}
	return out
}

// ByColumn re-keys the record with PUNT_* dataset columns.
func (s ScoreRecord) ByColumn() map[string]float64 {
	out := make(map[string]float64, len(s))
	for a, v := range s {
		out[a.Column()] = v
	}
	return out
}

// ScoresFromFields builds a record from API field names. Unknown keys are
// ignored; absent fields stay absent.
func ScoresFromFields(fields map[string]float64) ScoreRecord {
	s := make(ScoreRecord, len(Areas))
	for k, v := range fields {
		if a, ok := AreaFromField(k); ok {
			s[a] = v
		}
	}
	return s
}
