package tensor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
)

// NPZ archives hold one .npy member per named array. Entries are written in
// sorted name order so archives are byte-stable for identical inputs.

// WriteNPZ writes the named tensors to an uncompressed zip archive at path.
func WriteNPZ(path string, entries map[string]*Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tensor: create %s: %w", path, err)
	}
	zw := zip.NewWriter(f)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Store})
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("tensor: add npz member %s: %w", name, err)
		}
		if err := WriteNPY(w, entries[name]); err != nil {
			_ = f.Close()
			return fmt.Errorf("tensor: write npz member %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("tensor: finalize npz %s: %w", path, err)
	}
	return f.Close()
}

// ReadNPZ loads every member of the archive at path keyed by array name
// (member file name without the .npy suffix).
func ReadNPZ(path string) (map[string]*Tensor, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("tensor: open npz %s: %w", path, err)
	}
	defer zr.Close()

	entries := make(map[string]*Tensor, len(zr.File))
	for _, member := range zr.File {
		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("tensor: open npz member %s: %w", member.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("tensor: read npz member %s: %w", member.Name, err)
		}
		_ = rc.Close()

		t, err := ReadNPY(&buf)
		if err != nil {
			return nil, fmt.Errorf("tensor: decode npz member %s: %w", member.Name, err)
		}
		entries[strings.TrimSuffix(member.Name, ".npy")] = t
	}
	return entries, nil
}
