// Package catalog groups discovered mirrors by language and quality and
// ranks each group by swarm health.
package catalog

import (
	"strings"

	"github.com/anisan-cli/anistream/source"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

var qualityRank = map[string]int{
	"4k":    5,
	"2160p": 4,
	"1080p": 3,
	"720p":  2,
	"480p":  1,
}

// QualityRank orders quality labels; unknown labels rank 0.
func QualityRank(quality string) int {
	return qualityRank[strings.ToLower(quality)]
}

// Catalog is an immutable snapshot of the mirrors known for one content id.
// Each manifest reference appears at most once.
type Catalog struct {
	languages []string
	qualities map[string][]string
	buckets   map[string]map[string][]source.Mirror
	byRef     map[string]source.Mirror
	ordered   []source.Mirror
}

// Build partitions mirrors into language and quality buckets. Duplicate
// manifest references keep their first occurrence.
func Build(mirrors []source.Mirror) *Catalog {
	c := &Catalog{
		qualities: make(map[string][]string),
		buckets:   make(map[string]map[string][]source.Mirror),
		byRef:     make(map[string]source.Mirror, len(mirrors)),
	}

	for _, m := range mirrors {
		if _, seen := c.byRef[m.ManifestRef]; seen {
			continue
		}
		c.byRef[m.ManifestRef] = m

		byQuality, ok := c.buckets[m.Language]
		if !ok {
			byQuality = make(map[string][]source.Mirror)
			c.buckets[m.Language] = byQuality
			c.languages = append(c.languages, m.Language)
		}

		if _, ok := byQuality[m.Quality]; !ok {
			c.qualities[m.Language] = append(c.qualities[m.Language], m.Quality)
		}
		byQuality[m.Quality] = append(byQuality[m.Quality], m)
	}

	for lang, byQuality := range c.buckets {
		slices.SortStableFunc(c.qualities[lang], func(a, b string) int {
			return QualityRank(b) - QualityRank(a)
		})

		for _, bucket := range byQuality {
			slices.SortStableFunc(bucket, func(a, b source.Mirror) int {
				if a.Seeds != b.Seeds {
					return b.Seeds - a.Seeds
				}
				return b.Peers - a.Peers
			})
		}
	}

	for _, lang := range c.languages {
		for _, quality := range c.qualities[lang] {
			c.ordered = append(c.ordered, c.buckets[lang][quality]...)
		}
	}

	return c
}

// Len returns the number of distinct mirrors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

// Languages lists languages in order of first appearance.
func (c *Catalog) Languages() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.languages)
}

// QualitiesFor lists the qualities available for language, best first.
func (c *Catalog) QualitiesFor(language string) []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.qualities[language])
}

// Bucket returns the ranked mirrors for one language and quality.
func (c *Catalog) Bucket(language, quality string) []source.Mirror {
	if c == nil {
		return nil
	}
	return slices.Clone(c.buckets[language][quality])
}

// All returns every mirror in catalog iteration order: languages by first
// appearance, qualities best first, buckets by rank.
func (c *Catalog) All() []source.Mirror {
	if c == nil {
		return nil
	}
	return slices.Clone(c.ordered)
}

// Get looks a mirror up by manifest reference.
func (c *Catalog) Get(manifestRef string) (source.Mirror, bool) {
	if c == nil {
		return source.Mirror{}, false
	}
	m, ok := c.byRef[manifestRef]
	return m, ok
}

// Refs returns the set of manifest references in the catalog.
func (c *Catalog) Refs() []string {
	return lo.Map(c.All(), func(m source.Mirror, _ int) string {
		return m.ManifestRef
	})
}
