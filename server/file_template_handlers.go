package server

import (
	"embed"
	"html/template"
	"io/fs"
	"sync"
	"time"

	"github.com/jrsteele09/go-merch-storefront/checkout"
	"github.com/jrsteele09/go-merch-storefront/internal/utils"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var templateFuncs = template.FuncMap{
	"money": checkout.FormatTotal,
	"deref": utils.Value[string],
	"add":   func(a, b int) int { return a + b },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
}

var parsedTemplates sync.Map // name -> *template.Template

// ParseTemplate parses a template from the embedded filesystem. Parsed
// templates are cached for the life of the process.
func ParseTemplate(name string) (*template.Template, error) {
	if tmpl, ok := parsedTemplates.Load(name); ok {
		return tmpl.(*template.Template), nil
	}
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(string(content))
	if err != nil {
		return nil, err
	}
	parsedTemplates.Store(name, tmpl)
	return tmpl, nil
}
