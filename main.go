package main

import (
	"github.com/kruthinvinay/live-tracker/cmd"
	"github.com/kruthinvinay/live-tracker/internal/logging"
)

func main() {
	// Initialize logging for the client commands; serve builds its own.
	logging.Init()
	cmd.Execute()
}
