package drive

import (
	"errors"
	"io"
	"strings"
)

var (
	ErrTooLarge       = errors.New("file exceeds the upload size limit")
	ErrFolderNotFound = errors.New("folder not found")
)

// readLimited reads at most maxBytes; a non-positive limit disables the cap.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// escapeQuery quotes a value for use inside a Drive search literal.
func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// Latest picks the most recently modified importable file. Drive reports
// modifiedTime as RFC 3339 in UTC, so the strings order chronologically.
func Latest(files []File) (File, bool) {
	var (
		latest File
		found  bool
	)
	for _, f := range files {
		if !f.Importable() {
			continue
		}
		if !found || f.ModifiedTime > latest.ModifiedTime {
			latest, found = f, true
		}
	}
	return latest, found
}
