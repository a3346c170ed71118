package main

import (
	"context"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/petasbytes/go-translator/internal/prompt"
	"github.com/petasbytes/go-translator/internal/provider"
	"github.com/petasbytes/go-translator/internal/storage"
	"github.com/petasbytes/go-translator/internal/transcribe"
	"github.com/petasbytes/go-translator/internal/translate"
	"github.com/petasbytes/go-translator/memory"
)

// UserFlags select the user whose history a command works on.
type UserFlags struct {
	UserID int64
}

func NewUserFlags() *UserFlags {
	return &UserFlags{}
}

func (f *UserFlags) BindFlags(fs *pflag.FlagSet) {
	fs.Int64Var(&f.UserID, "user", 0, "Numeric id of the user whose conversations are used")
}

func (f *UserFlags) Validate() error {
	if f.UserID == 0 {
		return errors.New("--user is required")
	}
	return nil
}

// app holds the collaborators built from the resolved configuration.
type app struct {
	flags   *RootFlags
	backend *storage.Instrumented
	store   *memory.Store
	prompt  *prompt.Loader
}

// openApp resolves configuration from fs and opens the configured storage backend.
func openApp(ctx context.Context, f *RootFlags, fs *pflag.FlagSet) (*app, error) {
	if err := f.Config.Resolve(fs, f.ConfigFile, os.Getenv); err != nil {
		return nil, errors.WithMessage(err, "error resolving configuration")
	}

	backend, err := storage.Open(ctx, f.Config.StorageOptions(), log.StandardLogger())
	if err != nil {
		return nil, errors.WithMessage(err, "error opening storage")
	}

	return &app{
		flags:   f,
		backend: backend,
		store:   memory.NewStore(backend, memory.WithLogger(log.WithField("backend", backend.String()))),
		prompt:  prompt.NewLoader(f.Config.PromptFile, log.StandardLogger()),
	}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		log.WithError(err).Warn("error closing storage")
	}
}

func (a *app) translator() (*translate.Translator, error) {
	cfg := a.flags.Config
	client, err := provider.NewAnthropicClient(cfg.AnthropicAPIKey)
	if err != nil {
		return nil, errors.WithMessage(err, "error creating translation client")
	}
	t := translate.New(client, a.store, a.prompt)
	t.Model = anthropic.Model(cfg.Model)
	t.MaxTokens = int64(cfg.MaxTokens)
	t.HistoryWindow = cfg.HistoryWindow
	t.HistoryBudget = cfg.HistoryBudget
	return t, nil
}

func (a *app) transcriber() (*transcribe.Transcriber, error) {
	client, err := provider.NewOpenAIClient(a.flags.Config.OpenAIAPIKey)
	if err != nil {
		return nil, errors.WithMessage(err, "error creating transcription client")
	}
	t := transcribe.New(client)
	t.Model = openai.AudioModel(a.flags.Config.TranscribeModel)
	return t, nil
}
