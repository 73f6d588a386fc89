//go:build unix

package memimg

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps the memory dump at path read-only and presents it as guest
// memory starting at base.
func Open(path string, base uint64) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memimg: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("memimg: stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("memimg: %s is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("memimg: mmap %s: %w", path, err)
	}

	img := FromBytes(base, data)
	img.release = func() error { return unix.Munmap(data) }
	return img, nil
}
