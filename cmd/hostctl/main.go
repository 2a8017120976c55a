package main

import (
	"os"

	"github.com/hostctl/hostctl/internal/app"
)

func main() {
	os.Exit(app.Main())
}
