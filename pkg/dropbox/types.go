// Package dropbox is a minimal client for the Dropbox v2 HTTP API.
package dropbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type pathArg struct {
	Path string `json:"path"`
}

// ListFolderResponse represents the response from /files/list_folder.
// Raw keeps the undecoded body for callers that pass it through.
type ListFolderResponse struct {
	Entries []Entry         `json:"entries"`
	Cursor  string          `json:"cursor"`
	HasMore bool            `json:"has_more"`
	Raw     json.RawMessage `json:"-"`
}

// Entry represents a file or folder entry from Dropbox.
type Entry struct {
	Tag            string    `json:".tag"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	PathLower      string    `json:"path_lower"`
	PathDisplay    string    `json:"path_display"`
	ServerModified time.Time `json:"server_modified,omitempty"`
	Size           uint64    `json:"size,omitempty"`
}

// FileMetadata is the body returned by /files/upload.
type FileMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	Size        uint64 `json:"size"`
	ContentHash string `json:"content_hash"`
}

// UploadResult reports the outcome of an upload.
type UploadResult struct {
	StatusCode int
	Metadata   *FileMetadata // nil if the body was not file metadata
}

// APIError is a non-2xx response from Dropbox.
type APIError struct {
	Endpoint   string
	StatusCode int
	Summary    string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf("Dropbox authentication failed (401) on %s: %s. "+
			"Your token may be invalid or expired. "+
			"Generate a new token at https://www.dropbox.com/developers/apps", e.Endpoint, e.Summary)
	}
	return fmt.Sprintf("Dropbox API error %d on %s: %s", e.StatusCode, e.Endpoint, e.Summary)
}
