//go:build unix

package live

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// mmapRegion maps a file exported by a Wine/Proton bridge. There is no
// data-valid event on this side, so Wait polls.
type mmapRegion struct {
	data      []byte
	closeOnce sync.Once
	closeErr  error
}

func openRegion(opts Options) (region, error) {
	path := opts.MappingPath
	if path == "" {
		path = DefaultUnixPath
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", telemetry.ErrNoSessionFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", telemetry.ErrConnect, path, err)
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", telemetry.ErrConnect, path, err)
	}
	if st.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", telemetry.ErrNoSessionFound, path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %w", telemetry.ErrConnect, path, err)
	}
	return &mmapRegion{data: data}, nil
}

func (r *mmapRegion) Bytes() []byte { return r.data }

func (r *mmapRegion) Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *mmapRegion) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = unix.Munmap(r.data)
	})
	return r.closeErr
}
