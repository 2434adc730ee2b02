package domain

import "os"

// MediaFormat is the user-requested output format.
type MediaFormat string

const (
	FormatVideo MediaFormat = "video"
	FormatPhoto MediaFormat = "photo"
)

// Ext returns the file extension used for this format, including the dot.
func (f MediaFormat) Ext() string {
	if f == FormatPhoto {
		return ".jpg"
	}
	return ".mp4"
}

// DownloadRequest describes a single incoming link to resolve.
// Immutable once the format has been chosen.
type DownloadRequest struct {
	URL    string
	Format MediaFormat
}

// Platform classifies the request URL. Recomputed on demand, never cached.
func (r DownloadRequest) Platform() Platform {
	return ClassifyURL(r.URL)
}

// DownloadedFile is a media file staged on the local filesystem.
// The caller that requested it owns the path and must remove it after use.
type DownloadedFile struct {
	Path   string
	Size   int64
	Format MediaFormat
}

// Remove deletes the backing file. Safe to call on an already-removed file.
func (f *DownloadedFile) Remove() {
	if f != nil && f.Path != "" {
		os.Remove(f.Path)
	}
}
