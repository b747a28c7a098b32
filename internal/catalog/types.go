package catalog

// Difficulty grades a topic. Remote catalogs may leave it empty.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Section is the smallest readable unit of a topic.
type Section struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// Topic is a single article within a category.
type Topic struct {
	Slug       string     `json:"slug" yaml:"slug"`
	Title      string     `json:"title" yaml:"title"`
	Summary    string     `json:"summary,omitempty" yaml:"summary"`
	Difficulty Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	ReadTime   string     `json:"read_time,omitempty" yaml:"read_time"`
	Sections   []Section  `json:"sections" yaml:"sections"`
}

// Category groups topics under a subject area (e.g., Data Structures & Algorithms).
type Category struct {
	Slug        string  `json:"slug" yaml:"slug"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Topics      []Topic `json:"topics" yaml:"topics"`
}
