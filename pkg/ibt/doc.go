// Package ibt reads and writes .ibt telemetry recordings.
//
// A Reader validates the file once at open time and then serves frame
// records by index through io.ReaderAt, so one Reader can back several
// concurrent consumers:
//
//	r, err := ibt.Open("session.ibt")
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	buf := make([]byte, r.FrameSize())
//	for i := 0; i < r.Len(); i++ {
//		if buf, err = r.ReadFrame(i, buf); err != nil {
//			return err
//		}
//	}
//
// A Writer produces files in the same layout; pitwall uses it to record
// live sessions and to trim replays.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package ibt
