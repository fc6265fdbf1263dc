// internal/app/features/staffsettings/templates.go
package staffsettings

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "staffsettings",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
