package market

import (
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

type substitution struct {
	From, To string
}

// cityFixes corrects city names that arrive misspelled, abbreviated or
// mis-decoded (UTF-8 read as Windows-1252) in the sales exports. Keys are
// compared against the upper-cased name; targets are official province names.
var cityFixes = []substitution{
	{"AFYON", "AFYONKARAHİSAR"},
	{"K.MARAŞ", "KAHRAMANMARAŞ"},
	{"K. MARAŞ", "KAHRAMANMARAŞ"},
	{"MARAŞ", "KAHRAMANMARAŞ"},
	{"URFA", "ŞANLIURFA"},
	{"ANTEP", "GAZİANTEP"},
	{"İÇEL", "MERSİN"},
	{"ADAPAZARI", "SAKARYA"},
	{"İZMİT", "KOCAELİ"},
	{"Ä°STANBUL", "İSTANBUL"},
	{"Ä°ZMÄ°R", "İZMİR"},
	{"ÅŽANLIURFA", "ŞANLIURFA"},
	{"MUÄŽLA", "MUĞLA"},
	{"Ã‡ANAKKALE", "ÇANAKKALE"},
	{"Ã‡ORUM", "ÇORUM"},
	{"ELAZIÄŽ", "ELAZIĞ"},
}

type runeFold struct {
	From, To rune
}

// diacriticFolds is the complete substitution table for the Turkish
// alphabet. A generic Unicode fold is not used: it treats dotless ı and
// dotted İ differently from how the boundary files spell province names.
var diacriticFolds = []runeFold{
	{'Ç', 'C'}, {'ç', 'c'},
	{'Ğ', 'G'}, {'ğ', 'g'},
	{'İ', 'I'}, {'ı', 'i'},
	{'Ö', 'O'}, {'ö', 'o'},
	{'Ş', 'S'}, {'ş', 's'},
	{'Ü', 'U'}, {'ü', 'u'},
	{'Â', 'A'}, {'â', 'a'},
	{'Î', 'I'}, {'î', 'i'},
	{'Û', 'U'}, {'û', 'u'},
}

var (
	foldIndex = buildFoldIndex()
	fixIndex  = buildFixIndex()
)

func buildFoldIndex() map[rune]rune {
	idx := make(map[rune]rune, len(diacriticFolds))
	for _, f := range diacriticFolds {
		idx[f.From] = f.To
	}
	return idx
}

// buildFixIndex also registers the folded spelling of each key so that a
// misspelling typed without diacritics ("K.MARAS") is still corrected.
func buildFixIndex() map[string]string {
	idx := make(map[string]string, 2*len(cityFixes))
	for _, f := range cityFixes {
		idx[f.From] = f.To
		if folded := FoldDiacritics(f.From); folded != f.From {
			if _, exists := idx[folded]; !exists {
				idx[folded] = f.To
			}
		}
	}
	return idx
}

// FoldDiacritics replaces every character of the Turkish substitution table
// with its ASCII counterpart and leaves all other runes untouched.
func FoldDiacritics(s string) string {
	folder := runes.Map(func(r rune) rune {
		if to, ok := foldIndex[r]; ok {
			return to
		}
		return r
	})
	out, _, err := transform.String(folder, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeCity maps a raw city name to the key used to join sales rows with
// boundary records. The result is upper-case ASCII for every Turkish
// province. An empty or blank name yields the empty key, which never joins.
func NormalizeCity(raw string) string {
	s := strings.TrimSpace(cases.Upper(language.Turkish).String(raw))
	if s == "" {
		return ""
	}
	if fixed, ok := fixIndex[s]; ok {
		s = fixed
	}
	s = FoldDiacritics(s)
	if fixed, ok := fixIndex[s]; ok {
		s = FoldDiacritics(fixed)
	}
	return s
}

// CityFixes returns a copy of the misspelling table.
func CityFixes() map[string]string {
	out := make(map[string]string, len(cityFixes))
	for _, f := range cityFixes {
		out[f.From] = f.To
	}
	return out
}

// DiacriticFolds returns a copy of the diacritic table.
func DiacriticFolds() map[rune]rune {
	return maps.Clone(foldIndex)
}
