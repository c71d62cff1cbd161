package main

import "github.com/oshokin/edge-telemetry/cmd/edge-telemetry/cmd"

func main() {
	cmd.Execute()
}
