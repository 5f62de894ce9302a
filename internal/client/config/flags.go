package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   backend API base url
//	-t int      request timeout in seconds
//	-d string   path of the local SQLite database
//	-v string   outbound wire vocabulary (english or spanish)
//
// Only these flags are looked at; the rest of os.Args belongs to other layers.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend API base url")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	vocab := fs.String("v", string(cfg.WireVocabulary), "wire vocabulary")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		case "v":
			cfg.WireVocabulary = codec.Vocabulary(*vocab)
		}
	})
}
