package stage

import "testing"

func TestProgressionOrder(t *testing.T) {
	want := []Stage{
		ContextDiscovery,
		ObjectiveDefinition,
		MethodIdeation,
		MethodSelection,
		ImplementationPlan,
		Complete,
	}

	got := All()
	if len(got) != len(want) {
		t.Fatalf("All() returned %d stages, want %d", len(got), len(want))
	}
	for i, s := range want {
		if got[i] != s {
			t.Errorf("All()[%d] = %v, want %v", i, got[i], s)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		stage  Stage
		want   Stage
		wantOK bool
	}{
		{"initial stage", ContextDiscovery, ObjectiveDefinition, true},
		{"middle stage", MethodIdeation, MethodSelection, true},
		{"last non-terminal", ImplementationPlan, Complete, true},
		{"terminal stage", Complete, "", false},
		{"unknown stage", Stage("bogus"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stage.Next()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Next() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNoSkippedTransitions(t *testing.T) {
	// Every non-terminal stage has exactly one outgoing transition, to the
	// immediately following stage, and criteria.Next agrees with Next().
	stages := All()
	for i, s := range stages {
		c, ok := CriteriaFor(s)
		if !ok {
			t.Fatalf("no criteria entry for %v", s)
		}
		if s.Terminal() {
			if c.Next != "" {
				t.Errorf("terminal stage has Next = %v", c.Next)
			}
			continue
		}
		next, ok := s.Next()
		if !ok {
			t.Fatalf("non-terminal stage %v has no successor", s)
		}
		if next != stages[i+1] {
			t.Errorf("%v.Next() = %v, want %v", s, next, stages[i+1])
		}
		if c.Next != next {
			t.Errorf("criteria for %v points to %v, transition table says %v", s, c.Next, next)
		}
	}
}

func TestBefore(t *testing.T) {
	if !ContextDiscovery.Before(Complete) {
		t.Error("ContextDiscovery should precede Complete")
	}
	if Complete.Before(ContextDiscovery) {
		t.Error("Complete should not precede ContextDiscovery")
	}
	if MethodIdeation.Before(MethodIdeation) {
		t.Error("a stage should not precede itself")
	}
	if Stage("bogus").Before(Complete) {
		t.Error("unknown stages should compare as not-before")
	}
}

func TestCriteriaMinCounts(t *testing.T) {
	c, ok := CriteriaFor(MethodIdeation)
	if !ok {
		t.Fatal("missing criteria for MethodIdeation")
	}
	if c.MinCounts["candidateMethods"] != 2 {
		t.Errorf("candidateMethods minimum = %d, want 2", c.MinCounts["candidateMethods"])
	}
}

func TestValid(t *testing.T) {
	for _, s := range All() {
		if !s.Valid() {
			t.Errorf("%v reported invalid", s)
		}
	}
	if Stage("nope").Valid() {
		t.Error("unknown stage reported valid")
	}
}
