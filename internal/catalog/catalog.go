// Package catalog holds the immutable question definitions. The engine only
// reads from it; room-scoped lock state lives in the store, never here.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Question is one immutable catalog entry, identified by a room-independent
// number.
type Question struct {
	Number    int      `json:"number"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Correct   string   `json:"correct"`
	Category  string   `json:"category,omitempty"`
	TimeLimit int      `json:"timeLimit,omitempty"`
}

// IsCorrect compares a submitted answer against the correct option, trimmed
// and case-insensitive.
func (q Question) IsCorrect(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Correct))
}

// Catalog is an immutable, number-indexed question set.
type Catalog struct {
	byNumber map[int]Question
	ordered  []Question
}

// New builds a catalog from a question list. Duplicate numbers are rejected.
func New(questions []Question) (*Catalog, error) {
	byNumber := make(map[int]Question, len(questions))
	for _, q := range questions {
		if q.Number <= 0 {
			return nil, fmt.Errorf("question number must be positive, got %d", q.Number)
		}
		if _, ok := byNumber[q.Number]; ok {
			return nil, fmt.Errorf("duplicate question number %d", q.Number)
		}
		byNumber[q.Number] = q
	}
	ordered := make([]Question, 0, len(questions))
	for _, q := range byNumber {
		ordered = append(ordered, q)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	return &Catalog{byNumber: byNumber, ordered: ordered}, nil
}

// LoadFile reads a catalog from a JSON file holding an array of questions.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	return New(questions)
}

// Get looks up a question by number.
func (c *Catalog) Get(number int) (Question, bool) {
	q, ok := c.byNumber[number]
	return q, ok
}

// List returns all questions ordered by number.
func (c *Catalog) List() []Question {
	out := make([]Question, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len reports the catalog size.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
