package market

import (
	"testing"
	"unicode/utf8"
)

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"mixed case", "Istanbul", "ISTANBUL"},
		{"lower case dotted i", "  istanbul ", "ISTANBUL"},
		{"dotted capital", "İSTANBUL", "ISTANBUL"},
		{"mis-decoded", "Ä°STANBUL", "ISTANBUL"},
		{"mis-decoded two letters", "Ä°ZMÄ°R", "IZMIR"},
		{"dotless i", "Şanlıurfa", "SANLIURFA"},
		{"soft g", "Iğdır", "IGDIR"},
		{"short name", "Afyon", "AFYONKARAHISAR"},
		{"abbreviation", "k.maraş", "KAHRAMANMARAS"},
		{"abbreviation without diacritics", "K.MARAS", "KAHRAMANMARAS"},
		{"old name", "İçel", "MERSIN"},
		{"old name ascii", "ICEL", "MERSIN"},
		{"cedilla", "Çorum", "CORUM"},
		{"mis-decoded cedilla", "Ã‡ORUM", "CORUM"},
		{"unknown passes through", "Nowhereistan", "NOWHEREISTAN"},
		{"empty", "", ""},
		{"blank", "   \t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCity(tt.raw); got != tt.want {
				t.Errorf("NormalizeCity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func normalizeCorpus() []string {
	corpus := []string{
		"", " ", "Istanbul", "istanbul", "Ankara", "Iğdır", "Şanlıurfa",
		"Nowhereistan", "Hakkari", "Elazığ", "Kırşehir", "Düzce",
		"\xff\xfe", "ß", "K. Maraş", "adapazarı", "İzmit",
	}
	for from, to := range CityFixes() {
		corpus = append(corpus, from, to)
	}
	for from, to := range DiacriticFolds() {
		corpus = append(corpus, string(from), string(to))
	}
	return corpus
}

func TestNormalizeCity_Idempotent(t *testing.T) {
	for _, raw := range normalizeCorpus() {
		once := NormalizeCity(raw)
		if twice := NormalizeCity(once); twice != once {
			t.Errorf("NormalizeCity not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestNormalizeCity_Deterministic(t *testing.T) {
	for _, raw := range normalizeCorpus() {
		if a, b := NormalizeCity(raw), NormalizeCity(raw); a != b {
			t.Errorf("NormalizeCity(%q) returned %q and %q", raw, a, b)
		}
	}
}

func TestCityFixes_TargetsAreTerminal(t *testing.T) {
	for from, to := range CityFixes() {
		folded := FoldDiacritics(to)
		if next, ok := fixIndex[folded]; ok && FoldDiacritics(next) != folded {
			t.Errorf("fix %q -> %q leads to another fix %q", from, to, next)
		}
	}
}

func TestFoldDiacritics(t *testing.T) {
	for from, to := range DiacriticFolds() {
		if to >= utf8.RuneSelf {
			t.Errorf("fold of %q is not ASCII: %q", from, to)
		}
		if got := FoldDiacritics(string(from)); got != string(to) {
			t.Errorf("FoldDiacritics(%q) = %q, want %q", from, got, to)
		}
	}

	if got := FoldDiacritics("ÇĞİÖŞÜ çğıöşü"); got != "CGIOSU cgiosu" {
		t.Errorf("FoldDiacritics() = %q", got)
	}
	if got := FoldDiacritics("Ä°"); got != "Ä°" {
		t.Errorf("characters outside the table should be kept, got %q", got)
	}
}

func TestCityFixes_ReturnsCopy(t *testing.T) {
	fixes := CityFixes()
	fixes["AFYON"] = "changed"
	if got := NormalizeCity("Afyon"); got != "AFYONKARAHISAR" {
		t.Errorf("mutating the returned table changed lookups, got %q", got)
	}
}

func BenchmarkNormalizeCity(b *testing.B) {
	for b.Loop() {
		_ = NormalizeCity("  Ä°STANBUL ")
	}
}
