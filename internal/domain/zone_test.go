package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestZone_SetStatus(t *testing.T) {
	z := &Zone{Status: ZoneStatusBooked, Supplier: strPtr("ACME"), Brand: strPtr("Fizz")}

	z.SetStatus(ZoneStatusUnavailable)
	if z.Status != ZoneStatusUnavailable || z.Supplier == nil {
		t.Errorf("non-available status must keep the holder: %+v", z)
	}

	z.SetStatus(ZoneStatusAvailable)
	if z.Status != ZoneStatusAvailable || z.Supplier != nil || z.Brand != nil {
		t.Errorf("AVAILABLE must clear supplier and brand: %+v", z)
	}
}

func TestZoneClaim(t *testing.T) {
	tests := []struct {
		name     string
		claim    ZoneClaim
		wantErr  bool
		supplier *string
		brand    *string
	}{
		{"supplier only", ZoneClaim{Supplier: strPtr(" ACME ")}, false, strPtr("ACME"), nil},
		{"brand only", ZoneClaim{Brand: strPtr("Fizz")}, false, nil, strPtr("Fizz")},
		{"both empty", ZoneClaim{Supplier: strPtr(""), Brand: strPtr("  ")}, true, nil, nil},
		{"nothing", ZoneClaim{}, true, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.claim.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyClaim) {
					t.Errorf("error = %v, want ErrEmptyClaim", err)
				}
				return
			}

			z := &Zone{Status: ZoneStatusAvailable}
			tt.claim.Apply(z)
			if z.Status != ZoneStatusUnavailable {
				t.Errorf("Status = %v, want UNAVAILABLE", z.Status)
			}
			if !equalPtr(z.Supplier, tt.supplier) || !equalPtr(z.Brand, tt.brand) {
				t.Errorf("supplier/brand = %v/%v", z.Supplier, z.Brand)
			}
		})
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestZone_Validate(t *testing.T) {
	if err := (&Zone{UniqueIdentifier: "MSK-001", Category: "FOOD"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&Zone{Category: "FOOD"}).Validate(); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("error = %v, want ErrInvalidIdentifier", err)
	}
	if err := (&Zone{UniqueIdentifier: "x"}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("error = %v, want ErrInvalidCategory", err)
	}
	if err := (&Zone{UniqueIdentifier: "x", Category: "c", Status: "GONE"}).Validate(); !errors.Is(err, ErrInvalidZoneStatus) {
		t.Errorf("error = %v, want ErrInvalidZoneStatus", err)
	}
}

func TestParseZoneStatus(t *testing.T) {
	if s, err := ParseZoneStatus("booked"); err != nil || s != ZoneStatusBooked {
		t.Errorf("ParseZoneStatus() = %v, %v", s, err)
	}
	if _, err := ParseZoneStatus("FREE"); !errors.Is(err, ErrInvalidZoneStatus) {
		t.Errorf("error = %v, want ErrInvalidZoneStatus", err)
	}
}

func TestZone_Hold(t *testing.T) {
	z := &Zone{Status: ZoneStatusAvailable}
	z.Hold(strPtr(" ACME "), strPtr(""))

	if z.Status != ZoneStatusBooked {
		t.Errorf("Status = %v, want BOOKED", z.Status)
	}
	if z.Supplier == nil || *z.Supplier != "ACME" {
		t.Errorf("Supplier = %v, want ACME", z.Supplier)
	}
	if z.Brand != nil {
		t.Errorf("empty brand should be stored as null, got %q", *z.Brand)
	}
}
