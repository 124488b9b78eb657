package deck

import (
	"errors"
	"testing"
)

func TestParameter_Initial(t *testing.T) {
	p := NewParameter("x", -2, 4)
	if got := p.Initial(); got != 1 {
		t.Errorf("Expected midpoint 1, got %v", got)
	}

	p = p.WithStart(3)
	if got := p.Initial(); got != 3 {
		t.Errorf("Expected start 3, got %v", got)
	}
}

func TestParameterSet_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
	}{
		{"empty name", []Parameter{NewParameter("", 0, 1)}},
		{"low above high", []Parameter{NewParameter("x", 2, 1)}},
		{"start outside bounds", []Parameter{NewParameter("x", 0, 1).WithStart(2)}},
		{"duplicate", []Parameter{NewParameter("x", 0, 1), NewParameter("x", 0, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParameterSet(tt.params...)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParameterSet_Order(t *testing.T) {
	ps, err := NewParameterSet(
		NewParameter("b", 0, 1),
		NewParameter("a", 0, 2),
		NewParameter("c", 0, 3),
	)
	if err != nil {
		t.Fatalf("NewParameterSet failed: %v", err)
	}

	names := ps.Names()
	want := []string{"b", "a", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Name %d: expected %s, got %s", i, want[i], names[i])
		}
	}

	p, ok := ps.Get("a")
	if !ok || p.High != 2 {
		t.Errorf("Get(a) = %+v, %v", p, ok)
	}
	if _, ok := ps.Get("missing"); ok {
		t.Error("Get should not find missing parameter")
	}
}

func TestResponseSpec_Names(t *testing.T) {
	r := ResponseSpec{Objectives: []string{"f"}, Constraints: []string{"g1", "g2"}}
	if r.Count() != 3 {
		t.Errorf("Expected 3 responses, got %d", r.Count())
	}
	names := r.Names()
	if names[0] != "f" || names[1] != "g1" || names[2] != "g2" {
		t.Errorf("Objectives must come first, got %v", names)
	}
}
