package namespace

import (
	"path"
	"strings"
)

// CleanPath normalizes an absolute path.
//
// It returns an ErrInvalidArgument StoreError for relative or empty paths.
func CleanPath(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", &StoreError{Code: ErrInvalidArgument, Message: "path must be absolute", Path: p}
	}
	return path.Clean(p), nil
}

// Components splits a clean absolute path into its names.
//
// Components("/") returns an empty slice.
func Components(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Split divides an absolute path into its parent directory and final name.
//
// ok is false when p has no parent ("/" or a string without separator).
func Split(p string) (parent, name string, ok bool) {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "", "", false
	}
	name = p[idx+1:]
	if name == "" {
		return "", "", false
	}
	parent = p[:idx]
	if parent == "" {
		parent = "/"
	}
	return parent, name, true
}

// Join appends a relative path ("/a/b" or "a/b") to an absolute base.
func Join(base, rel string) string {
	return path.Join(base, rel)
}

// IsBelow reports whether p is strictly below root.
func IsBelow(p, root string) bool {
	if root == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}

// ValidateName checks that name can be used as a single directory entry.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return &StoreError{Code: ErrInvalidArgument, Message: "invalid entry name", Path: name}
	}
	return nil
}

// RelativePath builds the "/a/b" form HandleToPath returns from the names
// collected while walking from an entry up to (excluding) the root. names is
// ordered leaf first.
func RelativePath(names []string) string {
	if len(names) == 0 {
		return "/"
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	return b.String()
}
