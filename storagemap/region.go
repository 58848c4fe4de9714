package storagemap

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// mmapRegion wraps a single memory-mapped file. It is the only place this
// package touches the mmap-go library, so that Map's algorithms stay
// independent of the underlying OS mapping mechanism.
type mmapRegion struct {
	file *os.File
	m    mmap.MMap
}

func openRegion(path string, expectedSize int64, mode Mode) (mmapRegion, error) {
	flag := os.O_RDONLY
	if mode != ReadOnly {
		flag = os.O_RDWR
	}
	if mode == ReadWriteEx {
		flag |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return mmapRegion{}, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return mmapRegion{}, err
	}

	if info.Size() != expectedSize {
		if mode == ReadWriteEx && info.Size() == 0 {
			if err := f.Truncate(expectedSize); err != nil {
				f.Close()
				return mmapRegion{}, err
			}
		} else {
			f.Close()
			return mmapRegion{}, FileSizeMismatchError{Path: path, Expected: expectedSize, Actual: info.Size()}
		}
	}

	prot := mmap.RDONLY
	if mode != ReadOnly {
		prot = mmap.RDWR
	}

	var m mmap.MMap
	if expectedSize > 0 {
		m, err = mmap.Map(f, prot, 0)
		if err != nil {
			f.Close()
			return mmapRegion{}, err
		}
	}

	return mmapRegion{file: f, m: m}, nil
}

func (r mmapRegion) close() error {
	var err error
	if r.m != nil {
		err = r.m.Unmap()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (r mmapRegion) bytes() []byte {
	return r.m
}
