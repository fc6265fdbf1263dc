// internal/app/features/staffusers/templates.go
package staffusers

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "staffusers",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
