package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bolt/internal/messages"
	"bolt/internal/publisher"
)

var (
	listenAddr   string
	listenTopics []string
	listenRaw    bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print frames from the publish endpoint",
	Long: `Connect to the publish endpoint as a subscriber and print every frame.

Use --topic (repeatable) to only print frames whose topic starts with one of
the given prefixes. Press Ctrl+C to disconnect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := publisher.Dial(dialCtx, listenAddr, listenTopics...)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer client.Close()

		color.Green("Connected to %s", listenAddr)
		return listen(ctx, client, cmd.OutOrStdout(), listenRaw)
	},
}

// listen prints frames until ctx ends or the connection drops.
func listen(ctx context.Context, client *publisher.Client, out io.Writer, raw bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-client.Receive():
			if !ok {
				if err := client.Err(); err != nil {
					return fmt.Errorf("connection lost: %w", err)
				}
				color.Yellow("Publisher closed the connection")
				return nil
			}
			printFrame(out, frame, raw)
		}
	}
}

func printFrame(out io.Writer, frame publisher.Frame, raw bool) {
	if raw {
		fmt.Fprintf(out, "%s: %s\n", frame.Topic, frame.Body)
		return
	}
	body, err := messages.Decode(frame.Body)
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", color.RedString("[%s]", frame.Topic), frame.Body)
		return
	}
	if body.Type == messages.TypeHeartbeat {
		fmt.Fprintf(out, "%s %s\n", color.HiBlackString("[%s]", frame.Topic), describe(body))
		return
	}
	fmt.Fprintf(out, "%s %s\n", color.CyanString("[%s]", frame.Topic), describe(body))
}

// describe renders a body as the command line it stands for.
func describe(body messages.Body) string {
	sep := " "
	for _, extra := range body.Extras {
		if extra.Name == "opval_sep" {
			sep = extra.Value
		}
	}
	line := body.Command
	for _, sub := range body.Subcommand {
		line += " " + sub
	}
	for _, opt := range body.Options {
		line += " --" + opt.Name + sep + opt.Value
	}
	if body.Type == messages.TypeHeartbeat {
		for _, extra := range body.Extras {
			if extra.Name == "time" {
				line += " " + extra.Value
			}
		}
	}
	return line
}

func init() {
	defaultAddr := defaultPubAddr
	if v := os.Getenv("BOLT_PUBLISH_ADDR"); v != "" {
		defaultAddr = v
	}
	listenCmd.Flags().StringVar(&listenAddr, "addr", defaultAddr, "publish endpoint address")
	listenCmd.Flags().StringSliceVar(&listenTopics, "topic", nil, "topic prefix to print (repeatable)")
	listenCmd.Flags().BoolVar(&listenRaw, "raw", false, "print frames exactly as received")
}
