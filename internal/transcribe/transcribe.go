// Package transcribe turns recorded speech into text with the OpenAI audio API.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/go-translator/internal/provider"
)

// DefaultMIMEType is assumed when the caller does not know the audio format.
const DefaultMIMEType = "audio/ogg"

// ErrEmptyAudio is returned when there are no audio bytes.
var ErrEmptyAudio = errors.New("no audio to transcribe")

var extByMIME = map[string]string{
	"audio/ogg":    ".ogg",
	"audio/opus":   ".ogg",
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/webm":   ".webm",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
}

type Transcriber struct {
	Client *openai.Client
	Model  openai.AudioModel
	Logger log.FieldLogger
}

func New(client *openai.Client) *Transcriber {
	return &Transcriber{
		Client: client,
		Model:  provider.DefaultTranscriptionModel,
		Logger: log.StandardLogger(),
	}
}

// Transcribe returns the trimmed transcript of audio. An empty mimeType means DefaultMIMEType.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	name := "audio" + Extension(mimeType)
	t.Logger.WithFields(log.Fields{"bytes": len(audio), "mime": mimeType}).Info("transcribing")

	res, err := t.Client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), name, mimeType),
		Model: t.Model,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

// Extension returns the file extension the API expects for mimeType.
func Extension(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = mimeType
	}
	base = strings.ToLower(base)
	if ext, ok := extByMIME[base]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(base); len(exts) > 0 {
		return exts[0]
	}
	return ".ogg"
}

// MIMEType guesses the audio MIME type from a file name, defaulting to DefaultMIMEType.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".oga", ".ogg", ".opus":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	}
	for m, e := range extByMIME {
		if e == ext && !strings.HasPrefix(m, "audio/x-") && m != "audio/mp3" && m != "audio/opus" {
			return m
		}
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "audio/") {
		return t
	}
	return DefaultMIMEType
}
