package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed html/*.html
var templateFS embed.FS

// pageNames lists the dashboard pages; each has an html/<name>.html file
// defining the "content" block of the shared layout.
var pageNames = []string{"data", "predict", "kfold", "bench", "visualize", "gallery"}

// TemplateProvider holds the parsed page templates. Every page is parsed
// against the shared layout at construction so template errors surface at
// startup, not per request.
type TemplateProvider struct {
	pages map[string]*template.Template
}

// NewTemplateProvider parses the embedded page templates. The templates are
// compile-time assets, so a parse failure is a programming error and panics.
func NewTemplateProvider() *TemplateProvider {
	layout, err := templateFS.ReadFile("html/layout.html")
	if err != nil {
		panic(fmt.Sprintf("web: missing layout template: %v", err))
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		content, err := templateFS.ReadFile("html/" + name + ".html")
		if err != nil {
			panic(fmt.Sprintf("web: missing %s template: %v", name, err))
		}
		t := template.Must(template.New(name).Parse(string(layout)))
		template.Must(t.Parse(string(content)))
		pages[name] = t
	}
	return &TemplateProvider{pages: pages}
}

// ExecuteTemplate renders one page into w.
func (p *TemplateProvider) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	t, ok := p.pages[name]
	if !ok {
		return fmt.Errorf("web: no template %q", name)
	}
	return t.Execute(w, data)
}
