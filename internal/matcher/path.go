package matcher

import (
	"os"
	"path/filepath"
	"strings"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// ResolvePath returns the cleaned absolute path of rel inside root.
// Paths that escape root, directly or through a symlink, are rejected with
// ERR_406_INVALID_PATH; missing files are ERR_201_FILE_NOT_FOUND.
func ResolvePath(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", berrors.New(berrors.ErrCodeInvalidPath, "path is required", nil)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", berrors.New(berrors.ErrCodeInvalidPath, "invalid document root", err)
	}
	if real, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = real
	}

	candidate := rel
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absRoot, candidate)
	}
	candidate = filepath.Clean(candidate)

	real, err := filepath.EvalSymlinks(candidate)
	if os.IsNotExist(err) {
		return "", berrors.New(berrors.ErrCodeFileNotFound, "file not found", err).
			WithDetail("path", rel)
	}
	if err != nil {
		return "", berrors.New(berrors.ErrCodeInvalidPath, "cannot resolve path", err).
			WithDetail("path", rel)
	}

	inside, err := filepath.Rel(absRoot, real)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", berrors.New(berrors.ErrCodeInvalidPath, "path is outside the document root", nil).
			WithDetail("path", rel)
	}
	return real, nil
}
