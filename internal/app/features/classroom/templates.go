// internal/app/features/classroom/templates.go
package classroom

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "classroom",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
