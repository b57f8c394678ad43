package models

import (
	"encoding/json"
	"regexp"
	"time"
)

// Template types.
const (
	TemplateTest       = "test"
	TemplateTraining   = "training"
	TemplateProduction = "production"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Template is the blueprint annotation tasks are rendered from.
// Content is a JSON document that may contain {{column}} placeholders.
type Template struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"projectId"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Content      json.RawMessage `json:"content"`
	Private      bool            `json:"private"`
	TimerSeconds int             `json:"timerSeconds"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ValidTemplateType reports whether t is a known template type.
func ValidTemplateType(t string) bool {
	switch t {
	case TemplateTest, TemplateTraining, TemplateProduction:
		return true
	}
	return false
}

// Placeholders returns the distinct placeholder names used by the template, in order of appearance.
func (t Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(string(t.Content), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render replaces every {{key}} in the template content with the matching row value.
// Values are JSON-escaped so the result stays a valid document; unknown keys are left as they are.
func (t Template) Render(row map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(string(t.Content), func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := row[key]
		if !ok {
			return match
		}
		escaped, _ := json.Marshal(value)
		return string(escaped[1 : len(escaped)-1])
	})
}
