package domain

import "time"

// FileChange carries one file's new content at detection time.
// It is transient: produced by a detector, consumed by the merge engine,
// never persisted.
type FileChange struct {
	// Path is the local path as the enumerator produced it
	Path string

	// Content is the file's current content
	Content string
}

// RemoteMetadata is the small JSON record stored as a special file inside
// the remote gist. It mirrors the group's watch lists at the time of the
// last push and is the source of truth for what the gist tracks when the
// local group definition has drifted (e.g. across machines).
type RemoteMetadata struct {
	UploadDate     time.Time `json:"uploadDate"`
	Version        string    `json:"version"`
	WatchedFiles   []string  `json:"watchedFiles"`
	WatchedFolders []string  `json:"watchedFolders"`
}
