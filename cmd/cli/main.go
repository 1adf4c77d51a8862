package main

import (
	"fleetctl/internal/cli/cmd"
	"fleetctl/internal/config"
)

func main() {
	port := config.GetPort()
	cmd.Execute(port)
}
