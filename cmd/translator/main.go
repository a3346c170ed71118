package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/petasbytes/go-translator/internal/config"
)

// RootFlags are shared by every subcommand.
type RootFlags struct {
	ConfigFile  string
	LogLevel    string
	MetricsAddr string
	Config      config.Config
}

func NewRootFlags() *RootFlags {
	return &RootFlags{}
}

func (f *RootFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", os.Getenv("TRANSLATOR_CONFIG"), "Path to a YAML or TOML configuration file")
	fs.StringVar(&f.LogLevel, "log-level", "info", "Log level (trace,debug,info,warn,error) (default info)")
	fs.StringVar(&f.MetricsAddr, "listen-metrics", "", "Address to serve prometheus metrics on, e.g. :2112 (disabled when empty)")
	f.Config.BindFlags(fs)
}

func NewRootCommand() *cobra.Command {
	f := NewRootFlags()

	cmd := &cobra.Command{
		Use:   "translator",
		Short: "Translate text and voice notes into Argentine Spanish with per-user history",
		Long: `translator keeps one conversation history per user in a local directory,
on a remote host over SSH, in a GCS bucket or in Redis, and sends the recent
history with every translation request.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, err := log.ParseLevel(f.LogLevel)
			if err != nil {
				log.WithError(err).Fatal("cannot parse log-level")
			}
			log.SetLevel(level)

			// Serve our metrics endpoint for prometheus to scrape
			if f.MetricsAddr != "" {
				go func() {
					http.Handle("/metrics", promhttp.Handler())
					err := http.ListenAndServe(f.MetricsAddr, nil) //nolint
					if err != nil {
						log.WithError(err).Error("metrics listener stopped")
					}
				}()
			}
		},
	}

	cmd.AddCommand(
		NewChatCommand(f),
		NewTranslateCommand(f),
		NewNewCommand(f),
		NewHistoryCommand(f),
		NewConversationsCommand(f),
		NewExportCommand(f),
		NewTranscribeCommand(f),
		NewSchemaCommand(),
	)

	f.BindFlags(cmd.PersistentFlags())
	return cmd
}

func main() {
	// Add some millisecond precision to log timestamps, useful for debugging slow storage.
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	err := NewRootCommand().Execute()
	if err != nil {
		log.WithError(err).Fatal("could not execute root command")
	}
}
