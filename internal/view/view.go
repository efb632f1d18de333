// Package view renders the weather widget page.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/weather"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS
)

// DefaultTileURL is the OpenStreetMap XYZ tile template.
const DefaultTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

var iconEmoji = map[weather.Icon]string{
	weather.IconClear:  "☀️",
	weather.IconCloudy: "☁️",
	weather.IconRainy:  "🌧️",
	weather.IconOther:  "🌡️",
}

// Map configures the map surface.
type Map struct {
	TileURL string
	Zoom    int
}

// Page is the data behind one render of the widget.
type Page struct {
	Query   string
	Label   string
	Loading bool
	Error   string

	Card *Card

	Center lookup.Coordinate
	Map    Map
}

// Card is the weather summary. Absent readings are empty strings.
type Card struct {
	Temperature string
	Description string
	Humidity    string
	Wind        string
	Advice      string
	Icon        weather.Icon
	IconEmoji   string
}

// NewPage builds page data from a controller state.
func NewPage(state lookup.State, query string, m Map) Page {
	if m.TileURL == "" {
		m.TileURL = DefaultTileURL
	}

	return Page{
		Query:   query,
		Label:   state.Label,
		Loading: state.Loading,
		Error:   state.Error,
		Card:    NewCard(state.Conditions),
		Center:  state.Center,
		Map:     m,
	}
}

// NewCard formats conditions for display, or returns nil when there are none.
func NewCard(cond *weather.CurrentConditions) *Card {
	if cond == nil {
		return nil
	}

	icon := cond.Icon()
	return &Card{
		Temperature: FormatTemperature(cond.TemperatureC),
		Description: cond.Description(),
		Humidity:    FormatHumidity(cond.RelativeHumidityPct),
		Wind:        FormatWind(cond.WindSpeedKmh),
		Advice:      cond.Advice(),
		Icon:        icon,
		IconEmoji:   iconEmoji[icon],
	}
}

// FormatTemperature renders degrees Celsius with one decimal.
func FormatTemperature(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f°C", *v)
}

// FormatHumidity renders a whole percentage.
func FormatHumidity(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f%%", *v)
}

// FormatWind renders km/h with one decimal.
func FormatWind(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f km/h", *v)
}

// Renderer executes the page template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the full page.
func (r *Renderer) Render(w io.Writer, page Page) error {
	return r.tmpl.ExecuteTemplate(w, "index.html", page)
}

// Static serves the page's stylesheet and map script. Mount it under
// /static/ with the prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
