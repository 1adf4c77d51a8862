package storage

import (
	"encoding/json"
	"strings"

	"fleetctl/internal/domain"
)

func encodeGameOptions(opts domain.GameOptions) (string, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeGameOptions(raw string) domain.GameOptions {
	var opts domain.GameOptions
	if raw == "" {
		return opts
	}
	_ = json.Unmarshal([]byte(raw), &opts)
	return opts
}

func joinAuthors(authors []string) string {
	return strings.Join(authors, ",")
}

func splitAuthors(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
