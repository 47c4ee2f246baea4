package githubapi

import (
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    Identity
		wantErr bool
	}{
		{"plain", "cthoyt/autoreviewer", Identity{"cthoyt", "autoreviewer"}, false},
		{"https url", "https://github.com/psf/black", Identity{"psf", "black"}, false},
		{"www url", "https://www.github.com/psf/black", Identity{"psf", "black"}, false},
		{"git suffix", "https://github.com/psf/black.git", Identity{"psf", "black"}, false},
		{"trailing slash", "psf/black/", Identity{"psf", "black"}, false},
		{"dotted name", "owner/repo.js", Identity{"owner", "repo.js"}, false},
		{"missing name", "justowner", Identity{}, true},
		{"extra segments", "a/b/c", Identity{}, true},
		{"empty", "", Identity{}, true},
		{"spaces", "bad owner/repo", Identity{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseIdentity(%q) expected error", tt.ref)
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentity(%q) error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ParseIdentity(%q) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{Owner: "cthoyt", Name: "autoreviewer"}
	if id.String() != "cthoyt/autoreviewer" {
		t.Errorf("String() = %q", id.String())
	}
}

func TestParseIdentityPreservesCase(t *testing.T) {
	id, err := ParseIdentity("CamelOwner/CamelRepo")
	if err != nil {
		t.Fatal(err)
	}
	if id.Owner != "CamelOwner" || id.Name != "CamelRepo" {
		t.Errorf("identity should stay case-sensitive, got %v", id)
	}
}
