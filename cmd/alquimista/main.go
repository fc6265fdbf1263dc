// Command alquimista runs the portfolio site server.
package main

import (
	"context"

	"github.com/alquimista/website/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	app.Run(context.Background(), bootstrap.Hooks)
}
