package theme

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*
var templateFS embed.FS

// Theme represents the application theme configuration
type Theme struct {
	Name               string
	PrimaryColor       string
	SecondaryColor     string
	AccentColor        string
	BackgroundGradient string
	SurfaceColor       string
	TextColor          string
	FontFamily         string
}

// LightTheme returns the default light theme
func LightTheme() *Theme {
	return &Theme{
		Name:               "Light",
		PrimaryColor:       "#1a56db",
		SecondaryColor:     "#3f83f8",
		AccentColor:        "#c81e1e",
		BackgroundGradient: "linear-gradient(135deg, #3f83f8 0%, #1a56db 100%)",
		SurfaceColor:       "#ffffff",
		TextColor:          "#111827",
		FontFamily:         "-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif",
	}
}

// DarkTheme returns the dark theme
func DarkTheme() *Theme {
	return &Theme{
		Name:               "Dark",
		PrimaryColor:       "#3f83f8",
		SecondaryColor:     "#1a56db",
		AccentColor:        "#f98080",
		BackgroundGradient: "linear-gradient(135deg, #111827 0%, #1f2a44 100%)",
		SurfaceColor:       "#1f2937",
		TextColor:          "#f9fafb",
		FontFamily:         "-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif",
	}
}

// TemplateData represents data passed to templates
type TemplateData struct {
	Title    string
	Version  string
	Theme    *Theme
	Dark     bool
	PageName string
	Data     interface{}
}

// Renderer handles template rendering with theme support
type Renderer struct {
	templates *template.Template
}

// NewRenderer creates a new template renderer
func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Renderer{templates: templates}, nil
}

// RenderPage renders a page template, filling in the theme that matches
// the dark flag when none is set.
func (r *Renderer) RenderPage(w io.Writer, templateName string, data *TemplateData) error {
	if data.Theme == nil {
		if data.Dark {
			data.Theme = DarkTheme()
		} else {
			data.Theme = LightTheme()
		}
	}

	return r.templates.ExecuteTemplate(w, templateName, data)
}
