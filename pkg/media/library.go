package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// extensions the audio file picker accepts
var Extensions = []string{".mp3", ".wav", ".ogg", ".flac"}

var (
	ErrOutsideLibrary  = errors.New("path is outside of media directory")
	ErrUnsupportedFile = errors.New("unsupported audio file extension")
)

type File struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{
		dir: dir,
	}
}

func (l *Library) Dir() string {
	return l.dir
}

func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// List walks the media directory and returns supported files sorted by name.
func (l *Library) List() ([]File, error) {
	files := []File{}

	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !Supported(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}

		files = append(files, File{
			Name:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// Select resolves a file name from List to its path. An empty name means
// the selection was canceled and yields no path.
func (l *Library) Select(name string) (string, bool, error) {
	if name == "" {
		return "", false, nil
	}

	path := filepath.Join(l.dir, filepath.FromSlash(name))

	rel, err := filepath.Rel(l.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("%w: %s", ErrOutsideLibrary, name)
	}

	if !Supported(path) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", false, err
	}

	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}

	return path, true, nil
}
