package market

import (
	"errors"
	"testing"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		in      string
		want    Product
		wantErr bool
	}{
		{"TROCMETAM", Trocmetam, false},
		{"cortipol", Cortipol, false},
		{" DEKSAMETAZON ", Deksametazon, false},
		{"Isotonic", Isotonic, false},
		{"UNKNOWN_PRODUCT", 0, true},
		{"", 0, true},
		{"DIGER CORTIPOL", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProduct(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProduct) {
					t.Fatalf("ParseProduct(%q) error = %v, want ErrInvalidProduct", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProduct(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseProduct(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProduct_Columns(t *testing.T) {
	cols, err := Cortipol.Columns()
	if err != nil {
		t.Fatalf("Columns() error: %v", err)
	}
	if cols.Own != "CORTIPOL" || cols.Competitor != "DIGER CORTIPOL" {
		t.Errorf("Cortipol columns = %+v", cols)
	}

	seen := make(map[string]bool)
	for _, p := range Products() {
		cols, err := p.Columns()
		if err != nil {
			t.Fatalf("%v.Columns() error: %v", p, err)
		}
		if seen[cols.Own] || seen[cols.Competitor] {
			t.Errorf("%v reuses a column: %+v", p, cols)
		}
		seen[cols.Own], seen[cols.Competitor] = true, true
	}

	if _, err := Product(0).Columns(); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("zero product should be invalid, got %v", err)
	}
	if _, err := Product(99).Columns(); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("out of range product should be invalid, got %v", err)
	}
}

func TestProduct_TextRoundTrip(t *testing.T) {
	for _, p := range Products() {
		text, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", p, err)
		}
		var back Product
		if err := back.UnmarshalText(text); err != nil || back != p {
			t.Errorf("UnmarshalText(%s) = %v, %v", text, back, err)
		}
	}

	var p Product
	if err := p.UnmarshalText([]byte("ASPIRIN")); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("UnmarshalText(ASPIRIN) error = %v", err)
	}
}
