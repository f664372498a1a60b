package main

import (
	"os"

	"github.com/0xSardius/tidal-sub000/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
