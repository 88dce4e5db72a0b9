// Package storage keeps debug captures of the portal page on disk: a
// screenshot, the page markup and a JSON manifest listing every capture.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	manifestName = "artifacts.json"
	// MaxManifestEntries is how many captures the manifest remembers.
	MaxManifestEntries = 200
)

// Page is what a capture reads from.
type Page interface {
	Screenshot(path string) error
	Content() (string, error)
}

// Artifact describes one capture.
type Artifact struct {
	Name       string    `json:"name"`
	Reason     string    `json:"reason"`
	Screenshot string    `json:"screenshot,omitempty"`
	HTML       string    `json:"html,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Error      string    `json:"error,omitempty"`
}

// Artifacts writes captures below dir. Later captures with the same name
// overwrite earlier files; the manifest keeps the most recent
// MaxManifestEntries captures.
type Artifacts struct {
	mu       sync.Mutex
	dir      string
	manifest []Artifact
	limit    int
	now      func() time.Time
}

func NewArtifacts(dir string) (*Artifacts, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug dir: %w", err)
	}

	a := &Artifacts{dir: dir, limit: MaxManifestEntries, now: time.Now}
	if err := a.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	a.trim()
	return a, nil
}

func (a *Artifacts) Dir() string {
	return a.dir
}

// Capture saves name.png and name.html from page. Both are attempted even
// when one fails.
func (a *Artifacts) Capture(page Page, name, reason string) (Artifact, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	art := Artifact{Name: name, Reason: reason, CapturedAt: a.now()}
	var errs []error

	png := filepath.Join(a.dir, name+".png")
	if err := page.Screenshot(png); err != nil {
		errs = append(errs, fmt.Errorf("screenshot: %w", err))
	} else {
		art.Screenshot = png
	}

	html := filepath.Join(a.dir, name+".html")
	content, err := page.Content()
	if err == nil {
		err = writeAtomic(html, []byte(content))
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("page content: %w", err))
	} else {
		art.HTML = html
	}

	err = errors.Join(errs...)
	if err != nil {
		art.Error = err.Error()
	}

	a.manifest = append(a.manifest, art)
	a.trim()
	if serr := a.save(); serr != nil {
		err = errors.Join(err, serr)
	}
	return art, err
}

// List returns the captures recorded in the manifest, oldest first.
func (a *Artifacts) List() []Artifact {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Artifact, len(a.manifest))
	copy(out, a.manifest)
	return out
}

// trim drops the oldest entries beyond the limit.
func (a *Artifacts) trim() {
	if n := len(a.manifest); a.limit > 0 && n > a.limit {
		a.manifest = append([]Artifact(nil), a.manifest[n-a.limit:]...)
	}
}

func (a *Artifacts) save() error {
	data, err := json.MarshalIndent(a.manifest, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(a.dir, manifestName), data)
}

func (a *Artifacts) load() error {
	data, err := os.ReadFile(filepath.Join(a.dir, manifestName))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &a.manifest)
}

// writeAtomic writes to a temp file first and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpFile, path)
}
