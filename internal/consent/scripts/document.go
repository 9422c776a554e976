package scripts

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sync"
)

var headTemplate = template.Must(template.New("head").Parse(
	`{{range .Scripts}}{{if .Inline}}<script data-consent-id="{{.ID}}-inline" data-category="{{.Category}}">{{.Inline}}</script>
{{end}}{{if .Src}}<script id="{{.ID}}" src="{{.Src}}" data-category="{{.Category}}"{{if .Async}} async{{end}}></script>
{{end}}{{end}}{{if .Commands}}<script data-consent-id="init">{{range .Commands}}{{.}};{{end}}</script>
{{end}}`))

// HeadDocument collects injected tags and init commands for a server-rendered
// <head>. It is safe for concurrent use.
type HeadDocument struct {
	mu       sync.Mutex
	scripts  []Script
	ids      map[string]struct{}
	commands []Command
}

// NewHeadDocument returns an empty document.
func NewHeadDocument() *HeadDocument {
	return &HeadDocument{ids: make(map[string]struct{})}
}

func (d *HeadDocument) HasScript(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.ids[id]
	return ok
}

// AppendScript adds s unless a script with the same ID is already present.
func (d *HeadDocument) AppendScript(s Script) error {
	if s.ID == "" {
		return fmt.Errorf("script without id")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ids[s.ID]; ok {
		return nil
	}
	d.ids[s.ID] = struct{}{}
	d.scripts = append(d.scripts, s)
	return nil
}

func (d *HeadDocument) Exec(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, cmd)
	return nil
}

// Scripts returns the injected tags in injection order.
func (d *HeadDocument) Scripts() []Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Script(nil), d.scripts...)
}

// Commands returns the executed commands in order.
func (d *HeadDocument) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.commands...)
}

// Render writes the collected tags as HTML.
func (d *HeadDocument) Render(w io.Writer) error {
	d.mu.Lock()
	scripts := append([]Script(nil), d.scripts...)
	commands := make([]template.JS, 0, len(d.commands))
	for _, c := range d.commands {
		js, err := c.JS()
		if err != nil {
			d.mu.Unlock()
			return err
		}
		commands = append(commands, js)
	}
	d.mu.Unlock()

	return headTemplate.Execute(w, struct {
		Scripts  []Script
		Commands []template.JS
	}{scripts, commands})
}

// HTML renders the document into a string.
func (d *HeadDocument) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
