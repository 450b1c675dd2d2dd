// Package recordkey formats the composite identity used for deduplication.
package recordkey

import (
	"fmt"
	"strings"
)

// Format returns a record key like "march.csv:42".
func Format(sourceFile, rowID string) string {
	return sourceFile + ":" + rowID
}

// Parse splits a record key into source file and row ID. The split happens
// at the first colon, so source file names must not contain one.
func Parse(key string) (sourceFile, rowID string, err error) {
	sourceFile, rowID, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid record key format: %q", key)
	}
	return sourceFile, rowID, nil
}
