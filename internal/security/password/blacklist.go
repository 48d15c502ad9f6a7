package password

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist de contraseñas comunes. Se carga una vez al arrancar y es
// de solo lectura después, por eso no lleva lock.
type Blacklist struct {
	data map[string]struct{}
}

// NewBlacklist arma una blacklist en memoria (case-insensitive).
func NewBlacklist(words ...string) *Blacklist {
	bl := &Blacklist{data: make(map[string]struct{}, len(words))}
	for _, w := range words {
		bl.add(w)
	}
	return bl
}

// LoadBlacklist lee un archivo con una contraseña por línea; '#' comenta.
// Path vacío devuelve una blacklist vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	if strings.TrimSpace(path) == "" {
		return NewBlacklist(), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readBlacklist(f)
}

func readBlacklist(r io.Reader) (*Blacklist, error) {
	bl := NewBlacklist()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		bl.add(line)
	}
	return bl, sc.Err()
}

func (b *Blacklist) add(w string) {
	if s := strings.ToLower(strings.TrimSpace(w)); s != "" {
		b.data[s] = struct{}{}
	}
}

// Contains es nil-safe.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, ok := b.data[strings.ToLower(strings.TrimSpace(pwd))]
	return ok
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}
