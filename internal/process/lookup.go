package process

import (
	"os"
	"os/exec"
	"path/filepath"
)

// LookupFunc resolves a program name to an executable path.
type LookupFunc func(name string) (string, error)

// SearchPath returns a LookupFunc that checks dirs in order before falling back
// to the PATH environment variable.
func SearchPath(dirs ...string) LookupFunc {
	return func(name string) (string, error) {
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, name)
			if isExecutable(candidate) {
				return filepath.Abs(candidate)
			}
		}
		path, err := exec.LookPath(name)
		if err != nil {
			return "", err
		}
		return filepath.Abs(path)
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
