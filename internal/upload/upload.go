// ABOUTME: Stores files attached to portal forms in the uploads directory
// ABOUTME: Files are named <field>-<unix millis><ext> and never overwrite each other

package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Saver writes uploaded form files into one directory.
type Saver struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// New creates a Saver. maxBytes bounds the whole multipart body.
func New(dir string, maxBytes int64) *Saver {
	return &Saver{dir: dir, maxBytes: maxBytes, now: time.Now}
}

// LimitBody caps the request body at the upload size limit. Reads past it
// fail with *http.MaxBytesError.
func (s *Saver) LimitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
}

// ParseForm parses a form body, using the multipart parser when the request
// carries one.
func (s *Saver) ParseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(nil, r.Body, s.maxBytes)
		if err := r.ParseMultipartForm(s.maxBytes); err != nil {
			return fmt.Errorf("parsing multipart form: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parsing form: %w", err)
	}
	return nil
}

// Save stores the file in the named multipart field and returns its path.
// It returns "" and no error when the field holds no file.
func (s *Saver) Save(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s upload: %w", field, err)
	}
	defer file.Close()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}

	out, path, err := s.create(field, extension(header.Filename))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// create opens a new file named after field and the current time, stepping
// the timestamp forward when two uploads land in the same millisecond.
func (s *Saver) create(field, ext string) (*os.File, string, error) {
	millis := s.now().UnixMilli()
	for attempt := 0; attempt < 100; attempt++ {
		path := filepath.Join(s.dir, field+"-"+strconv.FormatInt(millis+int64(attempt), 10)+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free upload name for %s", field)
}

// extension returns the client file name's extension, dropping anything
// that is not a plain suffix.
func extension(name string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if ext == "." || strings.ContainsAny(ext, "/\\\x00") {
		return ""
	}
	return ext
}
