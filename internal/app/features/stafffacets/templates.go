// internal/app/features/stafffacets/templates.go
package stafffacets

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "stafffacets",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
