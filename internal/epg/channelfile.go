package epg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// channelFileEntry is one channel in the channel file
type channelFileEntry struct {
	Source string `json:"Source"`
	provider.ServiceChannel
}

// WriteChannelFile writes service channels as indented JSON, replacing path atomically
func WriteChannelFile(path, source string, channels []provider.ServiceChannel) error {
	entries := make([]channelFileEntry, 0, len(channels))
	for _, sc := range channels {
		entries = append(entries, channelFileEntry{Source: source, ServiceChannel: sc})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode channel file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create channel file directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "channels-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write channel file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write channel file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move channel file into place: %w", err)
	}
	return nil
}

// ReadChannelFile reads the service channels of source from a channel file.
// Entries without a service id or name are dropped.
func ReadChannelFile(path, source string) ([]provider.ServiceChannel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel file: %w", err)
	}

	var entries []channelFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode channel file %s: %w", path, err)
	}

	channels := make([]provider.ServiceChannel, 0, len(entries))
	for _, e := range entries {
		if e.Source != "" && e.Source != source {
			continue
		}
		if e.ServiceID == "" || e.Name == "" {
			continue
		}
		e.ServiceChannel.Programmes = []provider.Programme{}
		channels = append(channels, e.ServiceChannel)
	}
	return channels, nil
}
