package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/session"
	"github.com/bft-labs/pitwall/plugins/ibtwatch"
)

func newVarsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "vars <file.ibt>",
		Short: "Print the variable table of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ibt.Open(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(c.out, "%s: %d variables, %d frames at %g Hz\n\n",
				args[0], r.Variables().Len(), r.Len(), r.TickRate())
			return printVars(c.out, r)
		},
	}
}

func printVars(w io.Writer, r *ibt.Reader) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tCOUNT\tUNIT\tDESCRIPTION")
	for _, v := range r.Variables().Variables() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", v.Name, v.Type, v.Count, v.Unit, v.Desc)
	}
	return tw.Flush()
}

func newSessionCmd(c *cli) *cobra.Command {
	var (
		useLive bool
		raw     bool
	)
	cmd := &cobra.Command{
		Use:   "session [file.ibt]",
		Short: "Print the session document of a recording or of the live feed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case useLive && len(args) == 0:
				return c.liveSession(cmd.Context(), raw)
			case !useLive && len(args) == 1:
				r, err := ibt.Open(args[0])
				if err != nil {
					return err
				}
				defer r.Close()
				return c.printSession(r.SessionRevision(), r.SessionYAML(), raw)
			default:
				return errors.New("give either a file or --live")
			}
		},
	}
	cmd.Flags().BoolVar(&useLive, "live", false, "read from the running simulator")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the YAML document verbatim")
	addLiveFlags(cmd, c)
	return cmd
}

func (c *cli) liveSession(ctx context.Context, raw bool) error {
	conn, err := c.connectLive(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	snap, ok := conn.Session()
	if !ok {
		return errors.New("simulator has not published a session yet")
	}
	return c.printSession(snap.Info.Revision, snap.Info.YAML, raw)
}

func (c *cli) printSession(revision int, yaml string, raw bool) error {
	if raw {
		_, err := io.WriteString(c.out, yaml)
		return err
	}
	doc, err := session.Parse(yaml)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "revision %d: %s\n", revision, doc.Summary())
	if d, ok := doc.PlayerDriver(); ok {
		fmt.Fprintf(c.out, "driver: %s (#%s, %s)\n", d.UserName, d.CarNumber, d.CarScreenName)
	}
	return nil
}

func newWatchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Summarise every .ibt recording written to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := ibtwatch.New(ibtwatch.Config{
				Dir:           c.cfg.WatchDir,
				DebounceDelay: c.cfg.Debounce,
				Existing:      c.cfg.ScanExisting,
				Logger:        c.logger,
			}, func(_ context.Context, path string) {
				if err := c.summarise(path); err != nil {
					c.logger.Warn("summarise recording", log.String("path", path), log.Err(err))
				}
			})

			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return w.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&c.cfg.WatchDir, "dir", c.cfg.WatchDir, "directory to watch for recordings")
	cmd.Flags().DurationVar(&c.cfg.Debounce, "debounce", c.cfg.Debounce, "quiet period before a recording is considered complete")
	cmd.Flags().BoolVar(&c.cfg.ScanExisting, "existing", c.cfg.ScanExisting, "also summarise recordings already in the directory")
	return cmd
}

// summarise prints one line describing a finished recording.
func (c *cli) summarise(path string) error {
	r, err := ibt.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	length := time.Duration(float64(r.Len()) / r.TickRate() * float64(time.Second))
	summary := "no session document"
	if doc, err := session.Parse(r.SessionYAML()); err == nil {
		summary = doc.Summary()
	}
	fmt.Fprintf(c.out, "%s: %d frames (%s) | %s\n", path, r.Len(), length.Round(time.Second), summary)
	return nil
}
