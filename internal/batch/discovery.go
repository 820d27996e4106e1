// Package batch expands command-line arguments into the list of input files
// a conversion command works on.
package batch

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Options controls directory expansion.
type Options struct {
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool
	// Include lists base-name glob patterns a directory entry must match
	// one of. Empty includes everything.
	Include []string
	// Exclude lists base-name glob patterns that drop a directory entry.
	Exclude []string
}

// Discover expands directory arguments into the files they contain that pass
// the include and exclude patterns, in lexical order. Any other argument,
// including one that does not exist, is passed through unchanged so the
// caller reports it per input.
func Discover(args []string, opts Options) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := discoverInDirectory(arg, opts)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func discoverInDirectory(dir string, opts Options) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if shouldIncludeFile(path, opts.Include, opts.Exclude) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldIncludeFile applies exclude patterns first, then include patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
