package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/pitwall/internal/app"
	"github.com/bft-labs/pitwall/pkg/decode"
	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/lifecycle"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/pitwall"
	"github.com/bft-labs/pitwall/pkg/session"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// carState is the dashboard view printed by replay and live.
type carState struct {
	Speed    float32
	RPM      float32
	Gear     int32
	Throttle float32
	Brake    float32
	Flags    telemetry.BitField
}

func carMapping() *decode.Mapping[carState] {
	return decode.NewMapping[carState](
		decode.Float32("Speed", "", func(s *carState, v float32) { s.Speed = v }),
		decode.Float32("RPM", "", func(s *carState, v float32) { s.RPM = v }),
		decode.Int32("Gear", "", func(s *carState, v int32) { s.Gear = v }),
		decode.Float32("Throttle", "", func(s *carState, v float32) { s.Throttle = v }).Optional(),
		decode.Float32("Brake", "", func(s *carState, v float32) { s.Brake = v }).Optional(),
		decode.Flags("SessionFlags", "", func(s *carState, v telemetry.BitField) { s.Flags = v }).Optional(),
	)
}

type stateLogger struct{ logger log.Logger }

func (s stateLogger) OnStateChange(e lifecycle.Event) {
	s.logger.Debug("connection state",
		log.String("from", e.Previous.String()),
		log.String("to", e.Current.String()),
		log.String("reason", e.Reason),
	)
}

// addLiveFlags binds the flags shared by every command that can attach to
// the simulator.
func addLiveFlags(cmd *cobra.Command, c *cli) {
	f := cmd.Flags()
	f.BoolVar(&c.wait, "wait", false, "wait for the simulator to start, and reconnect after it exits")
	f.StringVar(&c.cfg.MappingPath, "mapping", c.cfg.MappingPath, "shared-memory file to map (unix)")
	f.DurationVar(&c.cfg.PollInterval, "poll", c.cfg.PollInterval, "poll interval when no data event is available (0: twice the tick rate)")
	f.DurationVar(&c.cfg.WaitInitial, "wait-initial", c.cfg.WaitInitial, "first retry delay for --wait")
	f.DurationVar(&c.cfg.WaitMax, "wait-max", c.cfg.WaitMax, "largest retry delay for --wait")
}

// connectLive attaches to the simulator. With --wait it retries with
// exponential backoff until a session appears or ctx ends.
func (c *cli) connectLive(ctx context.Context) (*pitwall.Connection, error) {
	cfg := c.current()
	b := app.NewBackoff(cfg.WaitInitial, cfg.WaitMax)
	for {
		conn, err := pitwall.ConnectLive(ctx, c.options()...)
		if err == nil {
			return conn, nil
		}
		if !c.wait || !errors.Is(err, telemetry.ErrNoSessionFound) {
			return nil, err
		}
		c.logger.Info("waiting for simulator", log.Duration("retry_in", b.Current()))
		if err := b.Sleep(ctx); err != nil {
			return nil, err
		}
	}
}

func newReplayCmd(c *cli) *cobra.Command {
	var (
		hz   float64
		from int
	)
	cmd := &cobra.Command{
		Use:   "replay <file.ibt>",
		Short: "Play back a recording, printing speed, RPM, gear, pedals and flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := pitwall.OpenReplay(args[0], c.options(pitwall.WithStartPaused())...)
			if err != nil {
				return err
			}
			defer conn.Close()

			err = c.stream(cmd.Context(), conn, hz, func() error {
				if from > 0 {
					if err := conn.Seek(from); err != nil {
						return err
					}
				}
				return conn.Resume()
			})
			if errors.Is(err, telemetry.ErrEndOfReplay) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&c.cfg.PlaybackRate, "rate", c.cfg.PlaybackRate, "playback speed multiplier (0.1 to 10)")
	cmd.Flags().BoolVar(&c.cfg.Unpaced, "unpaced", c.cfg.Unpaced, "read frames as fast as possible")
	cmd.Flags().Float64Var(&hz, "hz", 0, "print at most this many frames per second of session time (0: every frame)")
	cmd.Flags().IntVar(&from, "from", 0, "start at this frame")
	return cmd
}

func newLiveCmd(c *cli) *cobra.Command {
	var hz float64
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Print speed, RPM, gear, pedals and flags from the running simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			for {
				conn, err := c.connectLive(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}

				err = c.stream(ctx, conn, hz, nil)
				_ = conn.Close()
				switch {
				case errors.Is(err, context.Canceled):
					return nil
				case c.wait && (errors.Is(err, telemetry.ErrDisconnected) || errors.Is(err, telemetry.ErrHeaderChanged)):
					c.logger.Info("simulator went away, reconnecting", log.Err(err))
				default:
					return err
				}
			}
		},
	}
	cmd.Flags().Float64Var(&hz, "hz", 10, "print at most this many frames per second (0: every tick)")
	addLiveFlags(cmd, c)
	return cmd
}

// stream subscribes the dashboard mapping and prints frames until the
// connection ends. start, when set, runs once the subscription exists.
func (c *cli) stream(ctx context.Context, conn *pitwall.Connection, hz float64, start func() error) error {
	rate := telemetry.Native
	if hz > 0 {
		rate = telemetry.Max(hz)
	}
	sub, err := pitwall.Subscribe(conn, carMapping(), rate)
	if err != nil {
		return err
	}
	defer sub.Close()

	updates := conn.SessionUpdates()
	defer updates.Close()
	go c.logSessions(ctx, updates)

	stop := c.followConfig(ctx, conn)
	defer stop()

	if start != nil {
		if err := start(); err != nil {
			return err
		}
	}

	for {
		f, err := sub.Next(ctx)
		if err != nil {
			st := sub.Stats()
			c.logger.Info("stream ended",
				log.Uint64("delivered", st.Delivered),
				log.Uint64("dropped", st.Dropped()),
				log.Err(err),
			)
			return err
		}
		v := f.Value
		fmt.Fprintf(c.out, "%8d %9.3fs %6.1f km/h %6.0f rpm gear %2d thr %3.0f%% brk %3.0f%% %s\n",
			f.Tick, f.Time.Seconds(), v.Speed*3.6, v.RPM, v.Gear, v.Throttle*100, v.Brake*100,
			strings.Join(session.SessionFlagNames(uint32(v.Flags)), ","))
	}
}

func (c *cli) logSessions(ctx context.Context, updates *pitwall.SessionStream) {
	for {
		u, err := updates.Next(ctx)
		if err != nil {
			return
		}
		if u.ParseErr != nil {
			c.logger.Warn("session document", log.Revision(u.Info.Revision), log.Err(u.ParseErr))
			continue
		}
		c.logger.Info("session", log.Revision(u.Info.Revision), log.String("summary", u.Document.Summary()))
	}
}

func newRecordCmd(c *cli) *cobra.Command {
	var (
		out      string
		from, to int
	)
	cmd := &cobra.Command{
		Use:   "record [file.ibt] --out <out.ibt>",
		Short: "Record the live feed, or a trimmed copy of a recording, to an .ibt file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.trim(args[0], out, from, to)
			}
			return c.recordLive(cmd.Context(), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output .ibt file")
	cmd.Flags().IntVar(&from, "from", 0, "first frame to keep when trimming a recording")
	cmd.Flags().IntVar(&to, "to", -1, "last frame to keep when trimming a recording (-1: end)")
	_ = cmd.MarkFlagRequired("out")
	addLiveFlags(cmd, c)
	return cmd
}

// trim copies frames [from, to] of src into out. Frames are read straight
// from the file so none are dropped.
func (c *cli) trim(src, out string, from, to int) error {
	r, err := ibt.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	if to < 0 || to >= r.Len() {
		to = r.Len() - 1
	}
	if from < 0 || from > to {
		return fmt.Errorf("%w: frames %d..%d of %d", telemetry.ErrSeekOutOfRange, from, to, r.Len())
	}

	disk := r.DiskHeader()
	w, err := ibt.Create(out, r.Variables(), ibt.WriterOptions{
		TickRate:        int(r.TickRate()),
		SessionYAML:     r.SessionYAML(),
		SessionRevision: r.SessionRevision(),
		StartDate:       time.Unix(disk.StartDate, 0),
		StartTime:       disk.StartTime + float64(from)/r.TickRate(),
		LapCount:        int(disk.LapCount),
	})
	if err != nil {
		return err
	}

	buf := make([]byte, r.FrameSize())
	for i := from; i <= to; i++ {
		data, err := r.ReadFrame(i, buf)
		if err != nil {
			_ = w.Close()
			return err
		}
		if err := w.WriteFrame(data); err != nil {
			_ = w.Close()
			return err
		}
	}
	c.logger.Info("recording trimmed", log.String("out", out), log.Int("frames", w.Frames()))
	return w.Close()
}

// recordLive writes every frame it observes until interrupted or the
// simulator exits. Frames the writer falls behind on are counted, not queued.
func (c *cli) recordLive(ctx context.Context, out string) error {
	conn, err := c.connectLive(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub, err := pitwall.SubscribeRaw(conn, telemetry.Native)
	if err != nil {
		return err
	}
	defer sub.Close()

	opts := ibt.WriterOptions{TickRate: int(conn.TickRate()), StartDate: time.Now()}
	if snap, ok := conn.Session(); ok {
		opts.SessionYAML = snap.Info.YAML
		opts.SessionRevision = snap.Info.Revision
	}
	w, err := ibt.Create(out, conn.Header(), opts)
	if err != nil {
		return err
	}

	for {
		f, err := sub.Next(ctx)
		if err != nil {
			st := sub.Stats()
			c.logger.Info("recording finished",
				log.String("out", out),
				log.Int("frames", w.Frames()),
				log.Uint64("missed", st.Dropped()),
				log.Err(err),
			)
			closeErr := w.Close()
			if errors.Is(err, context.Canceled) || errors.Is(err, telemetry.ErrSourceClosed) {
				return closeErr
			}
			return errors.Join(err, closeErr)
		}
		if err := w.WriteFrame(f.Data); err != nil {
			_ = w.Close()
			return err
		}
	}
}
