//go:build linux

package wimage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// ShmRegion is anonymous shared memory mapped into this process. The fd can
// be handed to the compositor, which maps the same pages.
type ShmRegion struct {
	Fd   int
	Data []byte
}

// ShmOpen creates a region of size bytes. On failure nothing is left open.
func ShmOpen(size int) (*ShmRegion, error) {
	if size <= 0 {
		return nil, &ResourceError{Op: "shmopen", Size: size, Err: fmt.Errorf("bad size")}
	}
	fd, err := createFile()
	if err != nil {
		return nil, &ResourceError{Op: "create", Size: size, Err: err}
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, &ResourceError{Op: "ftruncate", Size: size, Err: err}
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, &ResourceError{Op: "mmap", Size: size, Err: err}
	}
	return &ShmRegion{Fd: fd, Data: data}, nil
}

func (r *ShmRegion) Size() int {
	return len(r.Data)
}

func (r *ShmRegion) Close() error {
	var err error
	if r.Data != nil {
		err = unix.Munmap(r.Data)
		r.Data = nil
	}
	if r.Fd >= 0 {
		if err2 := unix.Close(r.Fd); err == nil {
			err = err2
		}
		r.Fd = -1
	}
	if err != nil {
		return fmt.Errorf("shmclose: %w", err)
	}
	return nil
}

//----------

func createFile() (int, error) {
	fd, err := unix.MemfdCreate("wlpanel-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err == nil {
		// the compositor must not be able to shrink it under us
		_, _ = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK)
		return fd, nil
	}
	if err != unix.ENOSYS {
		return -1, fmt.Errorf("memfd_create: %w", err)
	}
	return createTmpFile()
}

// Fallback for kernels without memfd: an unlinked file in the runtime dir.
func createTmpFile() (int, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return -1, fmt.Errorf("XDG_RUNTIME_DIR is not set")
	}
	for i := 0; i < 100; i++ {
		name := "wlpanel-shm-" + strconv.FormatInt(time.Now().UnixNano()+int64(i), 36)
		path := filepath.Join(dir, name)
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0600)
		if err == unix.EEXIST {
			continue
		}
		if err != nil {
			return -1, fmt.Errorf("open: %w", err)
		}
		_ = unix.Unlink(path)
		return fd, nil
	}
	return -1, fmt.Errorf("unable to create unique file in %v", dir)
}
