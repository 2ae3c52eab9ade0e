// Standalone mock racing API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/raceday serve -c example/config.yaml
package main

import (
	"fmt"

	"github.com/WarrickSmith/raceday/example/mockapi"
)

func main() {
	fmt.Println("Mock racing API starting on :9999")
	fmt.Println("Race cards: /meetings/NZ-AUK/card and /meetings/NZ-CHC/card")
	fmt.Println("Race contexts: /races/{id}")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	mockapi.Start(":9999")
}
