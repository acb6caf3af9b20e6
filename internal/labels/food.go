package labels

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultFoodKeywords are Spanish food words matched against translated labels.
var DefaultFoodKeywords = []string{
	"manzana", "plátano", "banana", "hamburguesa", "zanahoria", "patata", "pastel",
	"sándwich", "pasta", "bistec", "sushi", "pan", "queso", "chocolate", "huevo",
	"pescado", "pollo", "tomate", "cebolla", "helado", "café", "té", "carne",
	"arroz", "sopa",
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "plátano" -> "platano").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel lowercases, trims and strips diacritics for comparison.
func NormalizeLabel(s string) string {
	return strings.ToLower(RemoveDiacritics(strings.TrimSpace(s)))
}

// FoodFilter keeps labels that name a known food.
type FoodFilter struct {
	keywords map[string]struct{}
}

// NewFoodFilter uses DefaultFoodKeywords when keywords is empty.
func NewFoodFilter(keywords []string) *FoodFilter {
	if len(keywords) == 0 {
		keywords = DefaultFoodKeywords
	}
	f := &FoodFilter{keywords: make(map[string]struct{}, len(keywords))}
	for _, k := range keywords {
		f.keywords[NormalizeLabel(k)] = struct{}{}
	}
	return f
}

// Filter returns the labels, as given, whose normalised form is a keyword.
func (f *FoodFilter) Filter(labels []string) []string {
	out := []string{}
	for _, l := range labels {
		if _, ok := f.keywords[NormalizeLabel(l)]; ok {
			out = append(out, l)
		}
	}
	return out
}
