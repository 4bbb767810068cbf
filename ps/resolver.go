package ps

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidName = errors.New("invalid database name")

// Resolver maps database names to storage files under BaseDir.
type Resolver struct {
	BaseDir string
}

func NewResolver(baseDir string) Resolver {
	return Resolver{BaseDir: baseDir}
}

// Path returns the storage file for name. Names must be plain file names:
// empty names, path separators and parent references are rejected.
func (resolver Resolver) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(resolver.BaseDir, name), nil
}
