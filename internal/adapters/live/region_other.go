//go:build !unix && !windows

package live

import "github.com/bft-labs/pitwall/pkg/telemetry"

func openRegion(Options) (region, error) {
	return nil, telemetry.ErrUnsupportedPlatform
}
