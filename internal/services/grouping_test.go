package services

import (
	"testing"

	"github.com/huangang/consultdesk/internal/models"
)

func consultant(email, specialty string) models.Consultant {
	return models.Consultant{Email: email, Name: email, Specialty: specialty}
}

func TestGroupBySpecialty_Scenario(t *testing.T) {
	input := []models.Consultant{
		consultant("civil@x.com", "Civil Engineer"),
		consultant("urban@x.com", "Urban Planner"),
		consultant("basket@x.com", "Underwater Basket Weaving"),
	}

	groups := GroupMap(input)

	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %v", len(groups), groups)
	}
	tests := []struct {
		label string
		email string
	}{
		{"Engineers", "civil@x.com"},
		{"Planners", "urban@x.com"},
		{"Underwater Basket Weaving", "basket@x.com"},
	}
	for _, tt := range tests {
		members := groups[tt.label]
		if len(members) != 1 || members[0].Email != tt.email {
			t.Errorf("groups[%q] = %v, expected [%s]", tt.label, members, tt.email)
		}
	}
}

func TestGroupBySpecialty_StableAndFirstEncounterOrder(t *testing.T) {
	input := []models.Consultant{
		consultant("a@x.com", "Urban Planner"),
		consultant("b@x.com", "UI/UX Design"),
		consultant("c@x.com", "Urban Planner"),
		consultant("d@x.com", "Civil Engineer"),
	}

	groups := GroupBySpecialty(input)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "Planners" || groups[1].Label != "Engineers" {
		t.Errorf("labels = [%s %s], expected [Planners Engineers]", groups[0].Label, groups[1].Label)
	}
	wantEngineers := []string{"b@x.com", "d@x.com"}
	for i, c := range groups[1].Consultants {
		if c.Email != wantEngineers[i] {
			t.Errorf("Engineers[%d] = %s, expected %s", i, c.Email, wantEngineers[i])
		}
	}
}

func TestGroupBySpecialty_Totality(t *testing.T) {
	specialties := []string{"Civil Engineer", "", "Urban Planner", "Landscape Architect", "Surveyor", "UI/UX Design", "Surveyor"}
	var input []models.Consultant
	for i, s := range specialties {
		input = append(input, consultant(string(rune('a'+i))+"@x.com", s))
	}

	seen := map[string]string{}
	total := 0
	for _, g := range GroupBySpecialty(input) {
		for _, c := range g.Consultants {
			if prev, dup := seen[c.Email]; dup {
				t.Errorf("%s appears in %q and %q", c.Email, prev, g.Label)
			}
			seen[c.Email] = g.Label
			total++
		}
	}
	if total != len(input) {
		t.Errorf("output holds %d consultants, expected %d", total, len(input))
	}
	for _, c := range input {
		if _, ok := seen[c.Email]; !ok {
			t.Errorf("%s was dropped", c.Email)
		}
	}
}

func TestGroupBySpecialty_Empty(t *testing.T) {
	if got := GroupBySpecialty(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if got := GroupMap(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestRegisterSpecialtyLabels(t *testing.T) {
	saved := make(map[string]string, len(specialtyLabels))
	for k, v := range specialtyLabels {
		saved[k] = v
	}
	defer func() { specialtyLabels = saved }()

	RegisterSpecialtyLabels(map[string]string{
		"Structural Engineer": "Engineers",
		"Civil Engineer":      "Civil Works",
		"Quantity Surveyor":   "",
	})

	if got := SpecialtyLabel("Structural Engineer"); got != "Engineers" {
		t.Errorf("SpecialtyLabel(Structural Engineer) = %q, expected %q", got, "Engineers")
	}
	if got := SpecialtyLabel("Civil Engineer"); got != "Engineers" {
		t.Errorf("built-in mapping should win, got %q", got)
	}
	if got := SpecialtyLabel("Quantity Surveyor"); got != "Quantity Surveyor" {
		t.Errorf("empty label should be ignored, got %q", got)
	}
}
