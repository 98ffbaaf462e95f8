// Package fileutil provides the small set of filesystem helpers the
// run orchestration needs.
package fileutil

import "os"

// Exists checks if a path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir checks if a path is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RemoveAll removes a path and all its children. A missing path is not
// an error, so clearing an output tree that was never written succeeds.
func RemoveAll(path string) error {
	return os.RemoveAll(path)
}
