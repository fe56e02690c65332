// Package cartio loads ROM images from disk: a reusable,
// error-returning loader shared by cmd/gbcore and cmd/testrunner
// instead of a log.Fatal-on-failure helper private to one command.
package cartio

import (
	"fmt"
	"os"
)

// LoadROM reads a ROM image from path and validates that its length
// is a power-of-two multiple of 16 KiB, the granularity every DMG
// cartridge ROM is built in, and no smaller than 32 KiB.
func LoadROM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ROM %q: %w", path, err)
	}
	if err := validateLength(len(data)); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return data, nil
}

// LoadOptional reads path if non-empty, returning nil otherwise. Used
// for optional boot ROMs and save files where "not provided" is not
// an error.
func LoadOptional(path string) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

func validateLength(n int) error {
	if n < 0x8000 {
		return fmt.Errorf("ROM too small (%d bytes, minimum 32 KiB)", n)
	}
	size := 0x8000
	for size < n {
		size <<= 1
	}
	if size != n {
		return fmt.Errorf("ROM length %d is not a power-of-two multiple of 16 KiB", n)
	}
	return nil
}
