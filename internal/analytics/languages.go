package analytics

import (
	"math"
	"sort"

	"github.com/google/go-github/v81/github"
)

type LanguageShare struct {
	Name    string  `json:"name" yaml:"name"`
	Bytes   int     `json:"bytes" yaml:"bytes"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Languages converts a byte count per language into shares rounded to one
// decimal, largest first.
func Languages(bytes map[string]int) []LanguageShare {
	total := 0
	for _, b := range bytes {
		total += b
	}
	out := make([]LanguageShare, 0, len(bytes))
	for name, b := range bytes {
		share := LanguageShare{Name: name, Bytes: b}
		if total > 0 {
			share.Percent = math.Round(float64(b)/float64(total)*1000) / 10
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LanguageCount is one entry of a language cloud: how many repositories of a
// result set use Language as their primary language.
type LanguageCount struct {
	Language string `json:"language" yaml:"language"`
	Count    int    `json:"count" yaml:"count"`
	Percent  int    `json:"percent" yaml:"percent"`
}

// LanguageCloud counts primary languages across repos. Repositories without a
// language are not counted; percentages are of the whole set and rounded to
// the nearest integer. Most used first, ties by name.
func LanguageCloud(repos []*github.Repository) []LanguageCount {
	counts := make(map[string]int)
	for _, r := range repos {
		if lang := r.GetLanguage(); lang != "" {
			counts[lang]++
		}
	}
	out := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, LanguageCount{
			Language: lang,
			Count:    n,
			Percent:  int(math.Round(float64(n) / float64(len(repos)) * 100)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Language < out[j].Language
	})
	return out
}
