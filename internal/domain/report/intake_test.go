package report

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
)

var referencePattern = regexp.MustCompile(`^PV-(PAT|HCP|FAM)-[0-9A-F]{8}$`)

func TestNewReferenceID(t *testing.T) {
	for _, o := range Origins {
		if ref := NewReferenceID(o); !referencePattern.MatchString(ref) {
			t.Errorf("unexpected reference id %q", ref)
		}
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture()

	r, err := f.svc.Submit(context.Background(), OriginHCP, json.RawMessage(`{"products":[{"name":"Aspirin"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Status != StatusNew || r.Severity != SeverityInfo {
		t.Errorf("expected new/info, got %s/%s", r.Status, r.Severity)
	}
	if !referencePattern.MatchString(r.ReferenceID) {
		t.Errorf("expected generated reference id, got %q", r.ReferenceID)
	}
	if !r.CreatedAt.Equal(r.LastUpdatedAt) {
		t.Error("createdAt and lastUpdatedAt should match on creation")
	}
	if len(f.repo.rows[OriginHCP]) != 1 {
		t.Error("expected report stored in the hcp table")
	}
}

func TestSubmit_KeepsReferenceID(t *testing.T) {
	f := newFixture()
	r, err := f.svc.Submit(context.Background(), OriginFamily, json.RawMessage(` {"referenceId":"EXT-42"} `))
	if err != nil {
		t.Fatal(err)
	}
	if r.ReferenceID != "EXT-42" {
		t.Errorf("expected EXT-42, got %q", r.ReferenceID)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		origin  Origin
		payload string
		want    error
	}{
		{"array", OriginPatient, `[1]`, ErrInvalidSubmission},
		{"empty", OriginPatient, ``, ErrInvalidSubmission},
		{"truncated", OriginPatient, `{"a":`, ErrInvalidSubmission},
		{"reference id not a string", OriginPatient, `{"referenceId":7}`, ErrInvalidSubmission},
		{"bad origin", Origin("vet"), `{}`, ErrInvalidOrigin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if _, err := f.svc.Submit(context.Background(), tt.origin, json.RawMessage(tt.payload)); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
