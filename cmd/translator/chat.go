package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewChatCommand(root *RootFlags) *cobra.Command {
	f := NewUserFlags()

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Translate lines typed on standard input until EOF or Ctrl-C",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.Validate(); err != nil {
				return errors.WithMessage(err, "error validating options")
			}

			// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigch := make(chan os.Signal, 1)
			signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigch)
			go func() {
				select {
				case <-sigch:
					fmt.Fprintln(cmd.OutOrStdout(), "\nExiting...")
					cancel()
				case <-ctx.Done():
				}
			}()

			a, err := openApp(ctx, root, cmd.Flags())
			if err != nil {
				return err
			}
			defer a.Close()
			tr, err := a.translator()
			if err != nil {
				return err
			}

			go func() {
				if err := a.prompt.Watch(ctx); err != nil {
					log.WithError(err).Warn("prompt hot reload disabled")
				}
			}()

			s := &session{store: a.store, translator: tr, userID: f.UserID, out: cmd.OutOrStdout()}
			return runChat(ctx, s, cmd.InOrStdin())
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}

// runChat feeds each line of in to s until in is exhausted or ctx is done.
func runChat(ctx context.Context, s *session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(s.out, "Translator ready (/start for help, Ctrl-C to quit)")

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

outer:
	for {
		fmt.Fprint(s.out, "\u001b[94mTu\u001b[0m: ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case line, ok = <-inputCh:
			if !ok {
				// the reader goroutine has returned, so scanner is safe to inspect
				fmt.Fprintln(s.out)
				if err := scanner.Err(); err != nil {
					return errors.WithMessage(err, "stdin read error")
				}
				break outer
			}
		}
		s.handle(ctx, line)
	}
	return nil
}
