package sdk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
)

// ProvisionEvent mirrors one frame of a provisioning session's event stream.
type ProvisionEvent struct {
	Kind     string  `json:"kind"`
	Step     string  `json:"step,omitempty"`
	Percent  float64 `json:"percent,omitempty"`
	Message  string  `json:"message,omitempty"`
	Current  int64   `json:"current,omitempty"`
	Total    int64   `json:"total,omitempty"`
	ServerID string  `json:"serverId,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// StreamProgress reads a provisioning session's server-sent-event stream,
// invoking onEvent for each frame until the session reaches a terminal
// complete/error frame or the connection ends.
func (c *Client) StreamProgress(sessionID string, onEvent func(ProvisionEvent)) error {
	resp, err := c.httpClient.Get(c.baseURL + fmt.Sprintf("/progress/%s", sessionID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("API error (%d)", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev ProvisionEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			continue
		}
		onEvent(ev)
		if ev.Kind == "complete" || ev.Kind == "error" {
			return nil
		}
	}
	return scanner.Err()
}
