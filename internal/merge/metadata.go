package merge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/version"
)

const (
	// MetadataFilename is the special file inside each gist recording what
	// the gist tracks and when it was last pushed
	MetadataFilename = "_gistwatch.json"

	// markerPrefix prefixes the per-group marker file name
	markerPrefix = "_gistwatch.group."
)

// MarkerFilename returns the marker file name for a group
func MarkerFilename(groupName string) string {
	return markerPrefix + groupName
}

// newMetadata builds the metadata record for the group's current watch lists
// with a fresh timestamp
func newMetadata(group domain.FileGroup, now time.Time) domain.RemoteMetadata {
	return domain.RemoteMetadata{
		UploadDate:     now.UTC(),
		Version:        version.Version,
		WatchedFiles:   append([]string(nil), group.Files...),
		WatchedFolders: append([]string(nil), group.Folders...),
	}
}

func encodeMetadata(meta domain.RemoteMetadata) (string, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data) + "\n", nil
}

func decodeMetadata(content string) (*domain.RemoteMetadata, error) {
	var meta domain.RemoteMetadata
	if err := json.Unmarshal([]byte(content), &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}
