package entity

import (
	"errors"
	"testing"

	"github.com/lite-lake/infra-regsync/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		region  string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "+44 20 7946 0958", want: "+44.2079460958"},
		{in: "+44-2079460958", want: "+44.2079460958"},
		{in: "+44.2079460958", want: "+44.2079460958"},
		{in: "+442079460958", want: "+44.2079460958"},
		{in: "+14155552671", want: "+1.4155552671"},
		{in: " +1 (555) 010-0199 ", want: "+1.5550100199"},
		{in: "020 7946 0958", region: "GB", want: "+44.2079460958"},
		{in: "(415) 555-2671", region: "us", want: "+1.4155552671"},
		{in: "+14155552671", region: "GB", want: "+1.4155552671"},
		{in: "442079460958", wantErr: true},
		{in: "+999 1234567", wantErr: true},
		{in: "+44.20x79460958", wantErr: true},
		{in: "+44.123", wantErr: true},
		{in: "not a phone", region: "GB", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in+"/"+tt.region, func(t *testing.T) {
			got, err := NormalizePhone(tt.in, tt.region)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidPhone) {
					t.Errorf("NormalizePhone(%q, %q) error = %v, want %v", tt.in, tt.region, err, domain.ErrInvalidPhone)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePhone(%q, %q) unexpected error = %v", tt.in, tt.region, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.in, tt.region, got, tt.want)
			}
		})
	}
}

func TestNormalizeCountry(t *testing.T) {
	if got, err := NormalizeCountry(" gb "); err != nil || got != "GB" {
		t.Errorf("NormalizeCountry(gb) = %q, %v", got, err)
	}
	for _, bad := range []string{"", "GBR", "1A", "zz"} {
		if _, err := NormalizeCountry(bad); !errors.Is(err, domain.ErrInvalidCountry) {
			t.Errorf("NormalizeCountry(%q) error = %v, want %v", bad, err, domain.ErrInvalidCountry)
		}
	}
}

func TestContactFields_Validate(t *testing.T) {
	valid := func() ContactFields {
		return ContactFields{Name: "Ops", Email: "ops@example.org", Address1: "1 Main St", Country: "GB"}
	}
	tests := []struct {
		name    string
		mutate  func(f *ContactFields)
		wantErr error
	}{
		{name: "valid", mutate: func(f *ContactFields) {}},
		{name: "organisation only", mutate: func(f *ContactFields) { f.Name, f.Organisation = "", "Example Ltd" }},
		{name: "no name or organisation", mutate: func(f *ContactFields) { f.Name = " " }, wantErr: domain.ErrRequired},
		{name: "missing email", mutate: func(f *ContactFields) { f.Email = "" }, wantErr: domain.ErrRequired},
		{name: "bad email", mutate: func(f *ContactFields) { f.Email = "not-an-email" }, wantErr: domain.ErrInvalidEmail},
		{name: "missing address", mutate: func(f *ContactFields) { f.Address1 = "" }, wantErr: domain.ErrRequired},
		{name: "missing country", mutate: func(f *ContactFields) { f.Country = "" }, wantErr: domain.ErrRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestContactFields_Normalize(t *testing.T) {
	f := ContactFields{Name: " Ops ", Email: " Ops@Example.ORG", Phone: "020 7946 0958", Address1: "1 Main St", Country: "gb"}
	got, err := f.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.Name != "Ops" || got.Email != "ops@example.org" || got.Phone != "+44.2079460958" || got.Country != "GB" {
		t.Errorf("Normalize() = %+v", got)
	}
	if f.Country != "gb" {
		t.Error("Normalize() should not modify the receiver")
	}

	f.Phone = "+14155552671"
	if got, err := f.Normalize(); err != nil || got.Phone != "+1.4155552671" {
		t.Errorf("Normalize() phone = %q, %v", got.Phone, err)
	}

	f.Phone = "not a phone"
	if _, err := f.Normalize(); !errors.Is(err, domain.ErrInvalidPhone) {
		t.Errorf("Normalize() error = %v, want %v", err, domain.ErrInvalidPhone)
	}
}

func TestContactRecord_IsEmpty(t *testing.T) {
	var nilRecord *ContactRecord
	if !nilRecord.IsEmpty() {
		t.Error("nil record should be empty")
	}
	if !(&ContactRecord{ID: "C-1", Name: "  "}).IsEmpty() {
		t.Error("record with only an id should be empty")
	}
	rec := NewContactRecord("C-2", ContactFields{Name: "Ops", Country: "GB"})
	if rec.IsEmpty() {
		t.Error("record with fields should not be empty")
	}
	if rec.Fields().Country != "GB" {
		t.Errorf("Fields() = %+v", rec.Fields())
	}
}

func TestContactRef_Validate(t *testing.T) {
	fields := &ContactFields{Name: "Ops"}
	tests := []struct {
		name    string
		ref     ContactRef
		wantErr error
	}{
		{name: "id", ref: ContactRef{ID: "C-1"}},
		{name: "fields", ref: ContactRef{Fields: fields}},
		{name: "both", ref: ContactRef{ID: "C-1", Fields: fields}, wantErr: domain.ErrInvalidContactReference},
		{name: "neither", ref: ContactRef{}, wantErr: domain.ErrRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestContactSet_RefAndResolved(t *testing.T) {
	set := ContactSet{
		Registrant: ContactRef{ID: "C-R"},
		Admin:      ContactRef{ID: "C-A"},
		Billing:    ContactRef{ID: "C-B"},
	}
	want := map[ContactRole]string{RoleRegistrant: "C-R", RoleAdmin: "C-A", RoleTech: "", RoleBilling: "C-B"}

	var resolved ResolvedContacts
	for _, role := range AllContactRoles {
		ref := set.Ref(role)
		if ref.ID != want[role] {
			t.Errorf("Ref(%s) = %q, want %q", role, ref.ID, want[role])
		}
		resolved.Set(role, ref.ID)
	}
	if resolved != (ResolvedContacts{Registrant: "C-R", Admin: "C-A", Billing: "C-B"}) {
		t.Errorf("ResolvedContacts = %+v", resolved)
	}
}
