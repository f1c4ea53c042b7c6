package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProduct is returned for any product selector outside the fixed set.
var ErrInvalidProduct = errors.New("invalid product")

type Product int

const (
	Trocmetam Product = iota + 1
	Cortipol
	Deksametazon
	Isotonic
)

// Products lists every supported product in display order.
func Products() []Product {
	return []Product{Trocmetam, Cortipol, Deksametazon, Isotonic}
}

func (p Product) String() string {
	switch p {
	case Trocmetam:
		return "TROCMETAM"
	case Cortipol:
		return "CORTIPOL"
	case Deksametazon:
		return "DEKSAMETAZON"
	case Isotonic:
		return "ISOTONIC"
	default:
		return fmt.Sprintf("Product(%d)", int(p))
	}
}

func (p Product) Valid() bool {
	return p >= Trocmetam && p <= Isotonic
}

// ColumnPair names the two source columns a product reads from.
type ColumnPair struct {
	Own        string
	Competitor string
}

// Columns returns the fixed column pair of p. Competitor columns carry the
// "DIGER" (other) prefix used by the sales export.
func (p Product) Columns() (ColumnPair, error) {
	if !p.Valid() {
		return ColumnPair{}, fmt.Errorf("%w: %s", ErrInvalidProduct, p)
	}
	name := p.String()
	return ColumnPair{Own: name, Competitor: "DIGER " + name}, nil
}

// ParseProduct resolves a product selector. Matching is case-insensitive and
// ignores surrounding whitespace, nothing else.
func ParseProduct(s string) (Product, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range Products() {
		if p.String() == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidProduct, s)
}

func (p Product) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProduct, p)
	}
	return []byte(p.String()), nil
}

func (p *Product) UnmarshalText(text []byte) error {
	parsed, err := ParseProduct(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
