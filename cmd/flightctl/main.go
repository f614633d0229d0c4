package main

import (
	"os"

	"flightsync-service/cmd/flightctl/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
