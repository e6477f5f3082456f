// ABOUTME: Track metadata lookup
// ABOUTME: Reads ID3, MP4, FLAC and Ogg tags for display, falling back to the file name
package decode

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"
)

// Tags is the display metadata of a file
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// String renders "Artist - Title", or just the title
func (t Tags) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// ReadTags reads the tags of the file at path. Untagged files get the
// base name as title.
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fallback := Tags{Title: filepath.Base(path)}

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback, nil
	}

	tags := Tags{Title: m.Title(), Artist: m.Artist(), Album: m.Album()}
	if tags.Title == "" {
		tags.Title = fallback.Title
	}
	return tags, nil
}
