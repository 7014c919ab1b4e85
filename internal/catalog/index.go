package catalog

import (
	"cmp"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/crypto/blake2b"
)

// Index answers ordering and membership questions about a catalog.
// It is immutable once built and safe for concurrent use.
type Index struct {
	concepts      []Concept
	conceptByID   map[string]int
	regions       []Region // sorted by Position, ties keep input order
	regionPos     map[string]int
	regionMembers map[string][]string // region id -> concept ids sorted by Order
	subtopicOwner map[string][]string // subtopic id -> concept ids
}

// NewIndex builds an index over concepts and regions. Unknown region
// references are kept; such concepts simply have no siblings.
func NewIndex(concepts []Concept, regions []Region) *Index {
	idx := &Index{
		concepts:      slices.Clone(concepts),
		conceptByID:   make(map[string]int, len(concepts)),
		regions:       slices.Clone(regions),
		regionPos:     make(map[string]int, len(regions)),
		regionMembers: make(map[string][]string),
		subtopicOwner: make(map[string][]string),
	}

	slices.SortStableFunc(idx.regions, func(a, b Region) int {
		return cmp.Compare(a.Position, b.Position)
	})
	for i, r := range idx.regions {
		if _, dup := idx.regionPos[r.ID]; !dup {
			idx.regionPos[r.ID] = i
		}
	}

	byRegion := make(map[string][]Concept)
	for i, c := range idx.concepts {
		if _, dup := idx.conceptByID[c.ID]; dup {
			continue
		}
		idx.conceptByID[c.ID] = i
		byRegion[c.RegionID] = append(byRegion[c.RegionID], c)
		for _, t := range c.Topics {
			for _, s := range t.Subtopics {
				idx.subtopicOwner[s.ID] = append(idx.subtopicOwner[s.ID], c.ID)
			}
		}
	}
	for regionID, members := range byRegion {
		slices.SortStableFunc(members, func(a, b Concept) int {
			return cmp.Compare(a.Order, b.Order)
		})
		idx.regionMembers[regionID] = lo.Map(members, func(c Concept, _ int) string { return c.ID })
	}
	for id, owners := range idx.subtopicOwner {
		idx.subtopicOwner[id] = lo.Uniq(owners)
	}

	return idx
}

// Concept returns a concept by ID.
func (x *Index) Concept(id string) (Concept, bool) {
	i, ok := x.conceptByID[id]
	if !ok {
		return Concept{}, false
	}
	return x.concepts[i], true
}

// Concepts returns all concepts in input order.
func (x *Index) Concepts() []Concept {
	return slices.Clone(x.concepts)
}

// Region returns a region by ID.
func (x *Index) Region(id string) (Region, bool) {
	i, ok := x.regionPos[id]
	if !ok {
		return Region{}, false
	}
	return x.regions[i], true
}

// Regions returns regions in map order.
func (x *Index) Regions() []Region {
	return slices.Clone(x.regions)
}

// ConceptsInRegion returns the region's concept IDs in study order.
func (x *Index) ConceptsInRegion(regionID string) []string {
	return slices.Clone(x.regionMembers[regionID])
}

// NextConcept returns the concept that follows conceptID inside its region.
func (x *Index) NextConcept(conceptID string) (string, bool) {
	c, ok := x.Concept(conceptID)
	if !ok {
		return "", false
	}
	members := x.regionMembers[c.RegionID]
	i := slices.Index(members, conceptID)
	if i < 0 || i+1 >= len(members) {
		return "", false
	}
	return members[i+1], true
}

// NextRegion returns the region that follows regionID in map order.
func (x *Index) NextRegion(regionID string) (string, bool) {
	i, ok := x.regionPos[regionID]
	if !ok || i+1 >= len(x.regions) {
		return "", false
	}
	return x.regions[i+1].ID, true
}

// Topic returns a topic of a concept together with its position.
func (x *Index) Topic(conceptID, topicID string) (Topic, int, bool) {
	c, ok := x.Concept(conceptID)
	if !ok {
		return Topic{}, -1, false
	}
	for i, t := range c.Topics {
		if t.ID == topicID {
			return t, i, true
		}
	}
	return Topic{}, -1, false
}

// SubtopicTopic returns the topic of a concept that contains subtopicID,
// together with the topic's position.
func (x *Index) SubtopicTopic(conceptID, subtopicID string) (Topic, int, bool) {
	c, ok := x.Concept(conceptID)
	if !ok {
		return Topic{}, -1, false
	}
	for i, t := range c.Topics {
		if slices.ContainsFunc(t.Subtopics, func(s Subtopic) bool { return s.ID == subtopicID }) {
			return t, i, true
		}
	}
	return Topic{}, -1, false
}

// ConceptsWithSubtopic returns the IDs of concepts whose topics contain subtopicID.
func (x *Index) ConceptsWithSubtopic(subtopicID string) []string {
	return slices.Clone(x.subtopicOwner[subtopicID])
}

// Fingerprint returns a stable hash of the catalog content. Snapshots record
// it so a restore against an edited catalog can be detected.
func Fingerprint(c *Catalog) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
