package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/medequip/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
