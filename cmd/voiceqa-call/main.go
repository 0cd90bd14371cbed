package main

import (
	"fmt"
	"log"
	"os"

	"github.com/voxline/voiceqa-backend/internal/builder"
)

func main() {
	app, err := builder.BuildCallClient(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to build call client:", err)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "call failed:", err)
		os.Exit(1)
	}
}
