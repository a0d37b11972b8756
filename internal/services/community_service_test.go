package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestCommunityInput_Normalize(t *testing.T) {
	in, err := CommunityInput{
		Name:     "  Anxiety Circle ",
		Category: " Support ",
		Tags:     []string{"Calm", "calm", " ", "sleep"},
	}.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if in.Name != "Anxiety Circle" || in.Category != "support" {
		t.Errorf("unexpected normalized input %+v", in)
	}
	if len(in.Tags) != 2 || in.Tags[0] != "calm" || in.Tags[1] != "sleep" {
		t.Errorf("tags: got %v", in.Tags)
	}

	in, err = CommunityInput{Name: "Walkers"}.Normalize()
	if err != nil || in.Category != defaultCommunityCategory {
		t.Errorf("expected default category, got %q (%v)", in.Category, err)
	}
}

func TestCommunityInput_NormalizeRejects(t *testing.T) {
	cases := map[string]CommunityInput{
		"short name": {Name: "ab"},
		"long name":  {Name: strings.Repeat("x", 101)},
		"many tags":  {Name: "Tags", Tags: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := in.Normalize(); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
}

func TestParseCommunityID(t *testing.T) {
	if _, err := parseCommunityID("not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := parseCommunityID("6f1c1c2e-5d55-4c1e-9f43-6d3f8a4a1b2c"); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
}
