//go:build !unix

package memimg

import (
	"fmt"
	"os"
)

// Open reads the memory dump at path into memory and presents it as
// guest memory starting at base. Platforms without mmap support pay
// for a full copy.
func Open(path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memimg: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("memimg: %s is empty", path)
	}
	return FromBytes(base, data), nil
}
