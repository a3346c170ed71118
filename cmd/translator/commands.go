package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/pretty"

	"github.com/petasbytes/go-translator/internal/transcribe"
	"github.com/petasbytes/go-translator/memory"
)

// userCommand builds a subcommand that needs --user and an opened store.
func userCommand(root *RootFlags, cmd *cobra.Command, run func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error) *cobra.Command {
	f := NewUserFlags()
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := f.Validate(); err != nil {
			return errors.WithMessage(err, "error validating options")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := openApp(ctx, root, cmd.Flags())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(ctx, a, f.UserID, cmd, args)
	}
	f.BindFlags(cmd.Flags())
	return cmd
}

func NewTranslateCommand(root *RootFlags) *cobra.Command {
	return userCommand(root, &cobra.Command{
		Use:   "translate TEXT...",
		Short: "Translate one message in the user's active conversation",
		Args:  cobra.MinimumNArgs(1),
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		tr, err := a.translator()
		if err != nil {
			return err
		}
		translation, err := tr.Translate(ctx, userID, strings.Join(args, " "))
		if err != nil {
			return errors.WithMessage(err, "error translating")
		}
		fmt.Fprintln(cmd.OutOrStdout(), translation)
		return nil
	})
}

func NewNewCommand(root *RootFlags) *cobra.Command {
	return userCommand(root, &cobra.Command{
		Use:   "new",
		Short: "End the active conversation and start a new one",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), newConversationText(a.store.StartNewConversation(ctx, userID)))
		return nil
	})
}

// HistoryFlags control the history listing.
type HistoryFlags struct {
	Limit int
	JSON  bool
}

func (f *HistoryFlags) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&f.Limit, "limit", historyLimit, "Number of most recent messages to show (0 = all)")
	fs.BoolVar(&f.JSON, "json", false, "Print messages as JSON")
}

func NewHistoryCommand(root *RootFlags) *cobra.Command {
	f := &HistoryFlags{}
	cmd := userCommand(root, &cobra.Command{
		Use:   "history",
		Short: "Show recent messages of the active conversation",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		msgs := a.store.RecentMessages(ctx, userID, f.Limit)
		if f.JSON {
			return writeJSON(cmd.OutOrStdout(), msgs)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatHistory(msgs))
		return nil
	})
	f.BindFlags(cmd.Flags())
	return cmd
}

func NewConversationsCommand(root *RootFlags) *cobra.Command {
	var asJSON bool
	cmd := userCommand(root, &cobra.Command{
		Use:   "conversations",
		Short: "List all of the user's conversations",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		convs := a.store.ListConversations(ctx, userID)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), convs)
		}
		writeConversations(cmd.OutOrStdout(), convs)
		return nil
	})
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print conversations as JSON")
	return cmd
}

func NewExportCommand(root *RootFlags) *cobra.Command {
	return userCommand(root, &cobra.Command{
		Use:   "export",
		Short: "Print the user's stored record document",
		Args:  cobra.NoArgs,
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		data, err := memory.Encode(a.store.Record(ctx, userID))
		if err != nil {
			return errors.WithMessage(err, "error encoding record")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}

// TranscribeFlags control the transcribe command.
type TranscribeFlags struct {
	MIMEType  string
	Translate bool
}

func (f *TranscribeFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.MIMEType, "mime", "", "Audio MIME type (guessed from the file extension when empty)")
	fs.BoolVar(&f.Translate, "translate", false, "Translate the transcript in the user's active conversation")
}

func NewTranscribeCommand(root *RootFlags) *cobra.Command {
	f := &TranscribeFlags{}
	cmd := userCommand(root, &cobra.Command{
		Use:   "transcribe FILE",
		Short: "Transcribe a voice recording and optionally translate it",
		Args:  cobra.ExactArgs(1),
	}, func(ctx context.Context, a *app, userID int64, cmd *cobra.Command, args []string) error {
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return errors.WithMessage(err, "error reading audio")
		}
		mimeType := f.MIMEType
		if mimeType == "" {
			mimeType = transcribe.MIMEType(args[0])
		}

		ts, err := a.transcriber()
		if err != nil {
			return err
		}
		transcript, err := ts.Transcribe(ctx, audio, mimeType)
		if err != nil {
			return errors.WithMessage(err, "error transcribing")
		}
		if !f.Translate {
			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			return nil
		}

		tr, err := a.translator()
		if err != nil {
			return err
		}
		translation, err := tr.Translate(ctx, userID, transcript)
		if err != nil {
			return errors.WithMessage(err, "error translating")
		}
		fmt.Fprintln(cmd.OutOrStdout(), voiceReply(transcript, translation))
		return nil
	})
	f.BindFlags(cmd.Flags())
	return cmd
}

func voiceReply(transcript, translation string) string {
	return fmt.Sprintf("Transcripcion: %s\n\nTraduccion: %s", transcript, translation)
}

func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a stored user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := memory.Schema()
			if err != nil {
				return errors.WithMessage(err, "error generating schema")
			}
			_, err = cmd.OutOrStdout().Write(pretty.Pretty(data))
			return err
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WithMessage(err, "error encoding JSON")
	}
	_, err = out.Write(pretty.Pretty(data))
	return err
}
