package upload

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"crackers-backend/internal/models"
)

// URLPrefix is where the router serves the local upload directory.
const URLPrefix = "/uploads"

type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, publicBaseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/") + URLPrefix}
}

func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(folder, name string, data []byte) (models.Image, error) {
	target := filepath.Join(l.dir, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return models.Image{}, err
	}
	if err := os.WriteFile(filepath.Join(target, name), data, 0o644); err != nil {
		return models.Image{}, err
	}
	rel := path.Join(folder, name)
	return models.Image{URL: l.baseURL + "/" + rel, PublicID: "local/" + rel}, nil
}

func (l *Local) Owns(url string) bool {
	return strings.HasPrefix(url, l.baseURL+"/")
}

// Remove deletes the file behind url. A file that is already gone is not an error.
func (l *Local) Remove(url string) error {
	rel := path.Clean("/" + strings.TrimPrefix(url, l.baseURL+"/"))
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
