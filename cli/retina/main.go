package main

import (
	"os"

	retinacmder "github.com/papercomputeco/retina/cmd/retina"
)

func main() {
	cmd := retinacmder.NewRetinaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
