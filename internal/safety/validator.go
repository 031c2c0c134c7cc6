package safety

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrDriveRoot     = errors.New("drive root")
	ErrProtectedPath = errors.New("protected path")
	ErrTraversal     = errors.New("path traversal detected")
)

// Validator enforces the safety contract for folder and file deletion steps.
// Targets are Windows paths; normalization is pure string work so the
// validator behaves identically on every build platform.
type Validator struct {
	ProtectedPaths []string
}

// NewValidator creates a validator with the default protected set plus extras
func NewValidator(extraProtected []string) *Validator {
	return &Validator{ProtectedPaths: defaultProtected(extraProtected)}
}

// ValidateDeleteTarget is the single source of truth for delete authorization.
// Returns a typed error on safety violation.
func (v *Validator) ValidateDeleteTarget(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if isDriveRoot(p) {
		return ErrDriveRoot
	}

	if DetectTraversal(path) {
		return ErrTraversal
	}

	// Block the protected path itself and anything that would take a
	// protected path down with it.
	for _, prot := range v.ProtectedPaths {
		if p == prot || hasPathPrefix(prot, p) {
			return ErrProtectedPath
		}
	}

	return nil
}

// NormalizePath lower-cases, converts slashes, and strips a trailing
// separator (drive roots keep theirs).
func NormalizePath(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", ErrInvalidPath
	}
	p = strings.ToLower(strings.ReplaceAll(p, "/", `\`))
	for len(p) > 3 && strings.HasSuffix(p, `\`) {
		p = p[:len(p)-1]
	}
	if len(p) < 2 || p[1] != ':' {
		return "", ErrInvalidPath
	}
	return p, nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\\' || r == '/'
	})
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// isDriveRoot matches "c:" and "c:\" for any drive letter
func isDriveRoot(p string) bool {
	if len(p) == 2 && p[1] == ':' {
		return true
	}
	return len(p) == 3 && p[1] == ':' && p[2] == '\\'
}

// hasPathPrefix reports whether path lives under root
func hasPathPrefix(path, root string) bool {
	if path == root {
		return true
	}
	if strings.HasSuffix(root, `\`) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+`\`)
}

// defaultProtected returns the base set of protected paths plus any extras.
// Entries are normalized the same way as validated targets.
func defaultProtected(extra []string) []string {
	base := []string{
		`c:\windows`,
		`c:\windows\system32`,
		`c:\program files`,
		`c:\program files (x86)`,
		`c:\programdata`,
		`c:\users`,
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, e := range extra {
		if p, err := NormalizePath(e); err == nil {
			out = append(out, p)
		}
	}
	return out
}
