//go:build windows

package live

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = kernel32.NewProc("OpenFileMappingW")
)

// waitSlice bounds one WaitForSingleObject call so ctx is honoured.
const waitSlice = 50 * time.Millisecond

// viewRegion is a read-only view of the simulator's named mapping plus the
// event it signals after every tick.
type viewRegion struct {
	mapping windows.Handle
	event   windows.Handle
	addr    uintptr
	data    []byte

	closeOnce sync.Once
	closeErr  error
}

func openRegion(opts Options) (region, error) {
	name, err := windows.UTF16PtrFromString(MappingName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrConnect, err)
	}
	if err := procOpenFileMappingW.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrUnsupportedPlatform, err)
	}
	h, _, callErr := procOpenFileMappingW.Call(windows.FILE_MAP_READ, 0, uintptr(unsafe.Pointer(name)))
	if h == 0 {
		return nil, fmt.Errorf("%w: %s: %v", telemetry.ErrNoSessionFound, MappingName, callErr)
	}
	r := &viewRegion{mapping: windows.Handle(h)}

	r.addr, err = windows.MapViewOfFile(r.mapping, windows.FILE_MAP_READ, 0, 0, 0)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: map view: %w", telemetry.ErrConnect, err)
	}
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(r.addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: query view: %w", telemetry.ErrConnect, err)
	}
	r.data = unsafe.Slice((*byte)(unsafe.Pointer(r.addr)), mbi.RegionSize)

	ev, err := windows.UTF16PtrFromString(DataEventName)
	if err == nil {
		// Without the event Wait falls back to polling.
		r.event, _ = windows.OpenEvent(windows.SYNCHRONIZE, false, ev)
	}
	return r, nil
}

func (r *viewRegion) Bytes() []byte { return r.data }

func (r *viewRegion) Wait(ctx context.Context, d time.Duration) error {
	if r.event == 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	deadline := time.Now().Add(d)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slice := min(time.Until(deadline), waitSlice)
		if slice <= 0 {
			return nil
		}
		ev, err := windows.WaitForSingleObject(r.event, uint32(slice/time.Millisecond))
		if err != nil {
			return fmt.Errorf("%w: wait for data: %w", telemetry.ErrConnect, err)
		}
		if ev == windows.WAIT_OBJECT_0 {
			return nil
		}
	}
}

func (r *viewRegion) Close() error {
	r.closeOnce.Do(func() {
		if r.addr != 0 {
			r.closeErr = windows.UnmapViewOfFile(r.addr)
		}
		if r.event != 0 {
			windows.CloseHandle(r.event)
		}
		if r.mapping != 0 {
			windows.CloseHandle(r.mapping)
		}
	})
	return r.closeErr
}
