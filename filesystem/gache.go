package filesystem

import (
	"io"
	"os"
)

// GacheFs lets gache persist through the active afero backend, so the
// history journal lands in memory whenever tests swap in MemMapFs.
type GacheFs struct{}

func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
