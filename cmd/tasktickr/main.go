package main

import (
	"os"

	"github.com/charlieadamsdev/tasktickr/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
