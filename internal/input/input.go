// Package input supplies the whole content of a measurements file as one
// immutable byte region.
package input

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	mmapfile "github.com/go-mmap/mmap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned when the input file cannot be opened, sized or mapped.
var ErrUnavailable = errors.New("input unavailable")

// Loader selects how a file is brought into memory.
type Loader string

const (
	// LoaderMmap maps the file read-only; the region is the mapping itself.
	LoaderMmap Loader = "mmap"
	// LoaderRead copies the file into a heap buffer owned by the region.
	LoaderRead Loader = "read"
)

// ParseLoader validates a loader name.
func ParseLoader(s string) (Loader, error) {
	switch l := Loader(s); l {
	case LoaderMmap, LoaderRead:
		return l, nil
	}
	return "", errors.Errorf("unknown loader %q", s)
}

// Region is a read-only view of a whole file. Close must be called on every
// path once the caller is done with Bytes.
type Region struct {
	data    []byte
	release func() error
}

// Bytes returns the content. It must not be modified, nor used after Close.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the content size in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Close releases the mapping and the file. It is safe to call twice.
func (r *Region) Close() error {
	r.data = nil
	if r.release == nil {
		return nil
	}
	release := r.release
	r.release = nil
	return release()
}

// Options controls Open.
type Options struct {
	Loader Loader
	// Sequential advises the kernel that a mapping is read front to back.
	Sequential bool
}

// Open loads name as described by opts.
func Open(name string, opts Options) (*Region, error) {
	switch opts.Loader {
	case LoaderMmap:
		return openMapped(name, opts.Sequential)
	case LoaderRead:
		return openRead(name)
	}
	return nil, errors.Errorf("unknown loader %q", opts.Loader)
}

func unavailable(err error, name string) error {
	return errors.Wrapf(ErrUnavailable, "%s: %v", name, err)
}

func openMapped(name string, sequential bool) (*Region, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, unavailable(err, name)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, unavailable(err, name)
	}
	if fi.IsDir() {
		f.Close()
		return nil, unavailable(errors.New("is a directory"), name)
	}
	size := fi.Size()
	if size != int64(int(size)) {
		f.Close()
		return nil, unavailable(errors.Errorf("file size %d too large to map", size), name)
	}
	if size == 0 {
		// empty files cannot be mapped
		return &Region{release: f.Close}, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, unavailable(err, name)
	}
	if sequential {
		if err := adviseSequential(data); err != nil {
			logrus.WithError(err).WithField("path", name).Debug("madvise failed")
		}
	}

	return &Region{
		data: data,
		release: func() error {
			unmapErr := data.Unmap()
			closeErr := f.Close()
			if unmapErr != nil {
				return errors.Wrapf(unmapErr, "unmap %s", name)
			}
			return closeErr
		},
	}, nil
}

func openRead(name string) (*Region, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, unavailable(err, name)
	}
	if fi.IsDir() {
		return nil, unavailable(errors.New("is a directory"), name)
	}
	if fi.Size() == 0 {
		return &Region{}, nil
	}

	f, err := mmapfile.Open(name)
	if err != nil {
		return nil, unavailable(err, name)
	}
	defer f.Close()

	data := make([]byte, f.Len())
	n, err := f.ReadAt(data, 0)
	if err != nil && err != io.EOF {
		return nil, unavailable(err, name)
	}
	return &Region{data: data[:n]}, nil
}
