package main

import (
	"os"
	"syscall"

	"github.com/paid-tw/paid/internal/app"
)

func main() {
	os.Exit(app.Run(app.Options{
		Args:    os.Args[1:],
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}))
}
