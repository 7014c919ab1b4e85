package catalog

// Catalog is the full course map: regions plus the concepts that reference them.
type Catalog struct {
	Regions  []Region  `yaml:"regions" json:"regions"`
	Concepts []Concept `yaml:"concepts" json:"concepts"`
}

// Region is a top-level unlockable area of the map (e.g., "Spice Forest").
type Region struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Color       string `yaml:"color,omitempty" json:"color,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Position    int    `yaml:"position" json:"position"`
}

// Concept is a graded unit of study belonging to exactly one region.
type Concept struct {
	ID          string  `yaml:"id" json:"id"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	RegionID    string  `yaml:"region" json:"region"`
	Order       int     `yaml:"order" json:"order"`
	Topics      []Topic `yaml:"topics" json:"topics"`
	Quiz        Quiz    `yaml:"quiz" json:"quiz"`
	ClassroomID string  `yaml:"classroom_id,omitempty" json:"classroom_id,omitempty"`
}

// Topic is an ordered grouping of subtopics inside a concept.
type Topic struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Subtopics   []Subtopic `yaml:"subtopics" json:"subtopics"`
}

// Subtopic is the leaf content unit. Its videos live in the CMS under ContentID.
type Subtopic struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	ContentID int    `yaml:"content_id,omitempty" json:"content_id,omitempty"`
}

// Video is a playable unit supplied by the content service.
type Video struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int    `json:"duration,omitempty"` // seconds
	Order    int    `json:"order"`
}

// Quiz belongs to a concept.
type Quiz struct {
	ID           string     `yaml:"id,omitempty" json:"id,omitempty"`
	PassingScore int        `yaml:"passing_score" json:"passing_score"`
	Questions    []Question `yaml:"questions,omitempty" json:"questions,omitempty"`
}

// Question is a multiple choice question with exactly one correct option.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Prompt      string   `yaml:"prompt" json:"prompt"`
	Options     []string `yaml:"options" json:"options"`
	Correct     int      `yaml:"correct" json:"correct"`
	Explanation string   `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}
