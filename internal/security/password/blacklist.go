package password

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist es un set de contraseñas prohibidas, comparadas en minúsculas.
// Se construye una vez al arrancar y luego es de solo lectura.
type Blacklist struct {
	words map[string]struct{}
}

// NewBlacklist crea una blacklist con las palabras dadas.
func NewBlacklist(words ...string) *Blacklist {
	b := &Blacklist{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		b.add(w)
	}
	return b
}

// LoadBlacklist lee un archivo con una contraseña por línea (# comenta).
// Path vacío retorna una blacklist vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	if strings.TrimSpace(path) == "" {
		return NewBlacklist(), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("password: blacklist: %w", err)
	}
	defer f.Close()
	return ReadBlacklist(f)
}

// ReadBlacklist construye la blacklist desde r.
func ReadBlacklist(r io.Reader) (*Blacklist, error) {
	b := NewBlacklist()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("password: blacklist: %w", err)
	}
	return b, nil
}

func (b *Blacklist) add(w string) {
	if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
		b.words[w] = struct{}{}
	}
}

// Contains es nil-safe.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil || len(b.words) == 0 {
		return false
	}
	_, ok := b.words[strings.ToLower(strings.TrimSpace(pwd))]
	return ok
}

// Len retorna la cantidad de entradas.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.words)
}
