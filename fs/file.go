package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// createFile writes a new file named name in dir, never replacing an
// existing one. When name is taken, _2, _3, ... are inserted before the
// extension until an unused name is found. It returns the name that was
// used.
func createFile(dir, name string, fill func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	final, err := claim(dir, name)
	if err != nil {
		return "", err
	}
	if err := replaceFile(dir, final, fill); err != nil {
		os.Remove(filepath.Join(dir, final))
		return "", err
	}
	return final, nil
}

// replaceFile writes name in dir, replacing any existing file. Content
// produced by fill is written to a temporary file first and renamed into
// place, so name never holds a partial file.
func replaceFile(dir, name string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// claim reserves an unused name in dir by creating it exclusively.
func claim(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 1; ; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return candidate, f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
}

// isVariant reports whether name is want or a collision variant of it
// produced by claim.
func isVariant(name, want string) bool {
	if name == want {
		return true
	}
	ext := filepath.Ext(want)
	stem := strings.TrimSuffix(want, ext) + "_"
	if !strings.HasPrefix(name, stem) || !strings.HasSuffix(name, ext) {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, stem), ext))
	return err == nil && n > 1
}

func bytesFill(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}
