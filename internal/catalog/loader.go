// Package catalog loads the course map (regions, concepts, topics, subtopics)
// that the progress store is seeded with.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Load reads a catalog from a single YAML file or from every YAML file under
// a directory. Files are merged in lexical path order so region and concept
// order is stable across runs.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			if strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking catalog dir: %w", err)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	cat := &Catalog{}
	for _, f := range files {
		part, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		cat.Regions = append(cat.Regions, part.Regions...)
		cat.Concepts = append(cat.Concepts, part.Concepts...)
	}

	cat.normalize()
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	slog.Info("catalog loaded", "regions", len(cat.Regions), "concepts", len(cat.Concepts))
	return cat, nil
}

// Parse decodes and validates a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	cat.normalize()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func loadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var part Catalog
	if err := yaml.Unmarshal(data, &part); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &part, nil
}

// normalize fills display names that were left blank.
func (c *Catalog) normalize() {
	title := cases.Title(language.English)
	for i := range c.Regions {
		r := &c.Regions[i]
		if r.DisplayName != "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = strings.NewReplacer("-", " ", "_", " ").Replace(r.ID)
		}
		r.DisplayName = title.String(name)
	}
}

// Validate checks cross-references the schema cannot express.
func (c *Catalog) Validate() error {
	regions := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if regions[r.ID] {
			return fmt.Errorf("duplicate region id: %s", r.ID)
		}
		regions[r.ID] = true
	}

	concepts := make(map[string]bool, len(c.Concepts))
	for _, con := range c.Concepts {
		if concepts[con.ID] {
			return fmt.Errorf("duplicate concept id: %s", con.ID)
		}
		concepts[con.ID] = true

		if !regions[con.RegionID] {
			return fmt.Errorf("concept %s references unknown region %q", con.ID, con.RegionID)
		}

		topics := make(map[string]bool, len(con.Topics))
		for _, t := range con.Topics {
			if topics[t.ID] {
				return fmt.Errorf("concept %s: duplicate topic id: %s", con.ID, t.ID)
			}
			topics[t.ID] = true
		}

		for _, q := range con.Quiz.Questions {
			if q.Correct < 0 || q.Correct >= len(q.Options) {
				return fmt.Errorf("concept %s: question %s has correct index %d out of %d options",
					con.ID, q.ID, q.Correct, len(q.Options))
			}
		}
	}
	return nil
}
