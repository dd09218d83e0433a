package services

import "github.com/huangang/consultdesk/internal/models"

// specialtyLabels maps a consultant specialty to its display group.
var specialtyLabels = map[string]string{
	"UI/UX Design":        "Engineers",
	"Civil Engineer":      "Engineers",
	"Urban Planner":       "Planners",
	"Landscape Architect": "Landscape Architects",
}

// RegisterSpecialtyLabels merges extra specialty mappings into the lookup
// table. Built-in entries are not overridden. Call during startup only.
func RegisterSpecialtyLabels(extra map[string]string) {
	for specialty, label := range extra {
		if _, exists := specialtyLabels[specialty]; exists || label == "" {
			continue
		}
		specialtyLabels[specialty] = label
	}
}

// SpecialtyLabel resolves the display label of a specialty. Unmapped
// specialties are their own label.
func SpecialtyLabel(specialty string) string {
	if label, ok := specialtyLabels[specialty]; ok {
		return label
	}
	return specialty
}

// SpecialtyGroup is one labelled bucket of consultants.
type SpecialtyGroup struct {
	Label       string              `json:"label"`
	Consultants []models.Consultant `json:"consultants"`
}

// GroupBySpecialty partitions consultants by display label. Labels appear in
// order of first encounter and consultants keep their input order.
func GroupBySpecialty(consultants []models.Consultant) []SpecialtyGroup {
	groups := []SpecialtyGroup{}
	index := make(map[string]int)

	for _, c := range consultants {
		label := SpecialtyLabel(c.Specialty)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, SpecialtyGroup{Label: label})
		}
		groups[i].Consultants = append(groups[i].Consultants, c)
	}
	return groups
}

// GroupMap is GroupBySpecialty keyed by label.
func GroupMap(consultants []models.Consultant) map[string][]models.Consultant {
	out := make(map[string][]models.Consultant)
	for _, g := range GroupBySpecialty(consultants) {
		out[g.Label] = g.Consultants
	}
	return out
}
