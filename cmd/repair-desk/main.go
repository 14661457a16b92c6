package main

import (
	"os"

	"github.com/psds-microservice/repair-desk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
