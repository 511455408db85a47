package main

import (
	"fmt"
	"os"
)

// This is the main entry point for the annotator.
// serve exposes the annotation API, ingest drains the recognizer queue,
// migrate prepares the schema.
func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
