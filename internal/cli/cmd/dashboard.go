package cmd

import (
	"fleetctl/internal/cli/ui"
)

func RunLogs(serverID string) {
	ui.RunLogs(Client, serverID)
}

func RunDashboard() {
	dashboardLoop := func() {
		for {
			serverID := ui.RunDashboard(Client)
			if serverID == "" {
				break
			}
			back := ui.RunLogs(Client, serverID)
			if !back {
				break
			}
		}
	}
	dashboardLoop()
}
