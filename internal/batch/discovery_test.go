package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscover_EmptyArgs(t *testing.T) {
	files, err := Discover(nil, Options{Include: []string{"*.png"}})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_FilesPassThrough(t *testing.T) {
	dir := t.TempDir()
	txt := touch(t, filepath.Join(dir, "notes.txt"))
	missing := filepath.Join(dir, "missing.png")

	files, err := Discover([]string{txt, missing}, Options{Include: []string{"*.png"}})
	require.NoError(t, err)
	assert.Equal(t, []string{txt, missing}, files, "explicit files are never filtered")
}

func TestDiscover_Directory(t *testing.T) {
	dir := t.TempDir()
	b := touch(t, filepath.Join(dir, "b.png"))
	a := touch(t, filepath.Join(dir, "a.sgev"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "c.png"))

	files, err := Discover([]string{dir}, Options{Include: []string{"*.png", "*.sgev"}})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestDiscover_Recursive(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, filepath.Join(dir, "root.png"))
	sub := touch(t, filepath.Join(dir, "sub", "sub.png"))
	touch(t, filepath.Join(dir, "sub", "sub.txt"))

	files, err := Discover([]string{dir}, Options{Recursive: true, Include: []string{"*.png"}})
	require.NoError(t, err)
	assert.Equal(t, []string{root, sub}, files)
}

func TestDiscover_Exclude(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, filepath.Join(dir, "cells.png"))
	touch(t, filepath.Join(dir, "cells_energy.png"))

	files, err := Discover([]string{dir}, Options{
		Include: []string{"*.png"},
		Exclude: []string{"*_energy.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"no patterns", "/a/x.png", nil, nil, true},
		{"include match", "/a/x.png", []string{"*.png"}, nil, true},
		{"include miss", "/a/x.tif", []string{"*.png"}, nil, false},
		{"exclude wins", "/a/x.png", []string{"*.png"}, []string{"x.*"}, false},
		{"pattern on base name", "/png/x.tif", []string{"png*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
