package intent

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Resolver maps spoken names onto configured app and site keys.
type Resolver struct {
	apps        []string
	sites       []string
	appAliases  map[string]string
	siteAliases map[string]string
	cutoff      float64
}

// NewResolver builds a Resolver. cutoff is the minimum similarity ratio
// (0..1] a fuzzy match must reach.
func NewResolver(apps, sites, appAliases, siteAliases map[string]string, cutoff float64) *Resolver {
	return &Resolver{
		apps:        sortedKeys(apps),
		sites:       sortedKeys(sites),
		appAliases:  lowerKeys(appAliases),
		siteAliases: lowerKeys(siteAliases),
		cutoff:      cutoff,
	}
}

// ResolveApp returns the app key for name, or false if nothing is close enough.
func (r *Resolver) ResolveApp(name string) (string, bool) {
	return resolve(name, r.apps, r.appAliases, r.cutoff)
}

// ResolveSite returns the site key for name, or false if nothing is close
// enough. A trailing ".com" is ignored.
func (r *Resolver) ResolveSite(name string) (string, bool) {
	name = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(name)), ".com")
	return resolve(name, r.sites, r.siteAliases, r.cutoff)
}

func resolve(name string, choices []string, aliases map[string]string, cutoff float64) (string, bool) {
	n := strings.TrimSpace(strings.ToLower(name))
	if n == "" {
		return "", false
	}
	if target, ok := aliases[n]; ok {
		n = strings.ToLower(target)
	}
	for _, c := range choices {
		if c == n {
			return c, true
		}
	}
	return CloseMatch(n, choices, cutoff)
}

// CloseMatch returns the choice most similar to word whose similarity ratio
// is at least cutoff. Ratios are computed over characters; ties go to the
// lexically greater choice.
func CloseMatch(word string, choices []string, cutoff float64) (string, bool) {
	a := strings.Split(word, "")
	best, bestScore := "", -1.0
	for _, c := range choices {
		m := difflib.NewMatcher(a, strings.Split(c, ""))
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && c > best) {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	return keys
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
