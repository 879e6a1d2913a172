package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"royale-audit/internal/logger"
	"royale-audit/internal/metrics"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

//go:embed static/style.css
var stylesheet []byte

// StylesheetPath is where RenderAll puts the stylesheet the layout links to.
const StylesheetPath = "static/style.css"

// Renderer turns a report context into one page of output.
type Renderer interface {
	Render(page string, ctx Context) ([]byte, error)
}

// TemplateRenderer renders html/template pages; each *.html file is one
// template named after the file.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses *.html from dir, or the built-in templates when dir is "".
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(defaultTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

func (r *TemplateRenderer) Render(page string, ctx Context) ([]byte, error) {
	t := r.tmpl.Lookup(page)
	if t == nil {
		return nil, fmt.Errorf("template %q not found", page)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("execute %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

type PageResult struct {
	Page string
	Path string
	Err  error
}

// RenderAll renders and writes every page into outDir. A failing page is
// logged and skipped; the remaining pages are still produced.
func RenderAll(r Renderer, pages []string, outDir string, ctx Context, m *metrics.Metrics) []PageResult {
	results := make([]PageResult, 0, len(pages))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.Error("render.output_dir", "dir", outDir, "err", err)
	}
	if err := writeStylesheet(outDir); err != nil {
		logger.Warn("render.stylesheet", "dir", outDir, "err", err)
	}
	for _, page := range pages {
		res := PageResult{Page: page, Path: filepath.Join(outDir, page)}
		out, err := r.Render(page, ctx)
		if err == nil {
			err = os.WriteFile(res.Path, out, 0o644)
		}
		res.Err = err
		m.PageRendered(page, err == nil)
		if err != nil {
			logger.Error("render.failed", "page", page, "err", err)
		} else {
			logger.Info("render.ok", "page", page, "path", res.Path)
		}
		results = append(results, res)
	}
	return results
}

// writeStylesheet installs the built-in stylesheet unless the output dir
// already carries one.
func writeStylesheet(outDir string) error {
	p := filepath.Join(outDir, filepath.FromSlash(StylesheetPath))
	if _, err := os.Stat(p); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, stylesheet, 0o644)
}

var roleLabels = map[string]string{
	"leader":   "Líder",
	"coLeader": "Co-líder",
	"elder":    "Ancião",
	"member":   "Membro",
}

// pageData adds the page title to the shared context for the layout templates.
type pageData struct {
	Context
	Title string
}

var funcs = template.FuncMap{
	"page": func(c Context, title string) pageData { return pageData{Context: c, Title: title} },
	"inc": func(i int) int { return i + 1 },
	"role": func(r string) string {
		if l, ok := roleLabels[r]; ok {
			return l
		}
		return r
	},
	"lower": strings.ToLower,
	"signed": func(n int) string {
		if n > 0 {
			return fmt.Sprintf("+%d", n)
		}
		return fmt.Sprint(n)
	},
	"pct": func(part, total int) int {
		if total <= 0 {
			return 0
		}
		return part * 100 / total
	},
}
