// Package atomicwrite escribe archivos sin dejar nunca uno a medio escribir:
// temporal en el mismo directorio, fsync y rename.
package atomicwrite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists se devuelve cuando el destino existe y no se pidió pisarlo.
var ErrExists = errors.New("atomicwrite: destination exists")

// WriteFile deja data en path con permisos perm. Sin overwrite, un destino
// existente no se toca. Si algo falla el temporal se borra y el archivo
// previo queda intacto.
func WriteFile(path string, data []byte, perm fs.FileMode, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("atomicwrite: stat %s: %w", path, err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicwrite: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("atomicwrite: create temp: %w", err)
	}
	name := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	// permisos antes de escribir: el secreto nunca queda legible por otros
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("atomicwrite: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("atomicwrite: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("atomicwrite: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomicwrite: close: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("atomicwrite: rename: %w", err)
	}
	committed = true
	return nil
}
