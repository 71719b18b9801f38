package database

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"log"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/mhalushka/rolodex/internal/models"
)

//go:embed seed/channels.yaml
var seedFS embed.FS

type channelManifest struct {
	Channels []string `yaml:"channels"`
}

// loadChannelManifest reads and parses the embedded channel vocabulary with
// strict validation. Unknown YAML fields are rejected to catch typos.
func loadChannelManifest() ([]string, error) {
	data, err := seedFS.ReadFile("seed/channels.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read channel manifest: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var manifest channelManifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to parse channel manifest: %w", err)
	}

	if len(manifest.Channels) == 0 {
		return nil, fmt.Errorf("channel manifest lists no channels")
	}
	for _, name := range manifest.Channels {
		if name == "" {
			return nil, fmt.Errorf("channel manifest contains an empty name")
		}
	}

	return manifest.Channels, nil
}

// SeedChannels syncs the channel vocabulary from the embedded manifest to the
// channels table. Missing names are created; existing rows are left untouched,
// so the sync is idempotent and never clobbers ids referenced by
// contacts_channels rows.
func SeedChannels(db *gorm.DB) error {
	names, err := loadChannelManifest()
	if err != nil {
		return err
	}

	created := 0
	for _, name := range names {
		var channel models.Channel
		result := db.Where("name = ?", name).First(&channel)
		if result.Error == nil {
			continue
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up channel %q: %w", name, result.Error)
		}
		if err := db.Create(&models.Channel{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to seed channel %q: %w", name, err)
		}
		created++
	}

	log.Printf("Channel vocabulary: %d entries in manifest, %d created", len(names), created)
	return nil
}
