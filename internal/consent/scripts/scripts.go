// Package scripts describes the third-party tags gated by consent and how they
// are placed into a page.
package scripts

import (
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"

	"cookiegate/internal/consent/models"
)

// Script is one tag to inject. ID doubles as the DOM marker used to detect an
// earlier injection.
type Script struct {
	ID       string          `json:"id"`
	Category models.Category `json:"category"`
	Src      string          `json:"src,omitempty"`
	Async    bool            `json:"async,omitempty"`
	// Inline is a bootstrap snippet emitted before Src loads.
	Inline template.JS `json:"inline,omitempty"`
	// Init runs once, right after the tag is injected.
	Init []Command `json:"init,omitempty"`
}

var fnPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]*$`)

// Command is a call into a loaded integration, e.g. gtag("config", id).
type Command struct {
	Fn   string `json:"fn"`
	Args []any  `json:"args"`
}

// Validate rejects function names that are not plain JS identifiers.
func (c Command) Validate() error {
	if !fnPattern.MatchString(c.Fn) {
		return fmt.Errorf("invalid command function %q", c.Fn)
	}
	return nil
}

// JS renders the command as a call expression. Arguments are JSON encoded,
// which escapes <, > and & for script contexts.
func (c Command) JS() (template.JS, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	args, err := json.Marshal(c.Args)
	if err != nil {
		return "", fmt.Errorf("encode %s arguments: %w", c.Fn, err)
	}
	return template.JS(fmt.Sprintf("%s.apply(window,%s)", c.Fn, args)), nil //nolint:gosec // fn is validated, args are JSON
}

// Document is the page scripts are injected into.
type Document interface {
	HasScript(id string) bool
	AppendScript(s Script) error
	Exec(cmd Command) error
}
