package services

import (
	"fmt"
	"io"
	"os"

	"github.com/dhowden/tag"
)

// LocalFile is a [FileSource] backed by a file on disk. Its name is the path as given.
type LocalFile struct {
	path string
}

func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

func (f *LocalFile) Name() string { return f.path }

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Size returns the file size in bytes.
func (f *LocalFile) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Tags reads embedded ID3/MP4/FLAC/OGG tags into track record field names.
// Empty values are omitted.
func (f *LocalFile) Tags() (map[string]any, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", f.path, err)
	}

	out := map[string]any{}
	setString := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	setInt := func(k string, v int) {
		if v > 0 {
			out[k] = int64(v)
		}
	}

	setString("name", m.Title())
	setString("artist", m.Artist())
	setString("album", m.Album())
	setString("albumArtist", m.AlbumArtist())
	setString("composer", m.Composer())
	setString("genre", m.Genre())
	setInt("year", m.Year())

	track, totalTracks := m.Track()
	setInt("track", track)
	setInt("totalTracks", totalTracks)

	disc, totalDiscs := m.Disc()
	setInt("disc", disc)
	setInt("totalDiscs", totalDiscs)

	return out, nil
}

var _ FileSource = (*LocalFile)(nil)
