package diff3

import (
	"errors"
	"fmt"
	"strings"
)

var ErrConflict = errors.New("merge conflict")

// Path addresses a value inside a document. Elements are object keys or array item keys.
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, el := range p {
		sb.WriteByte('/')
		sb.WriteString(el)
	}
	return sb.String()
}

func (p Path) child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

type ConflictError struct {
	Path Path
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict at %s", e.Path)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
