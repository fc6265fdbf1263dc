// internal/app/features/stafftopics/templates.go
package stafftopics

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "stafftopics",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
