//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/seqalloc/adapters/clients"
	"github.com/weaviate/seqalloc/adapters/handlers/rest/seqapi"
	"github.com/weaviate/seqalloc/adapters/handlers/rest/state"
	"github.com/weaviate/seqalloc/usecases/config"
)

const (
	TargetServer = "server"
	TargetAlloc  = "alloc"
)

// Options represents Command line options
type Options struct {
	Target string `long:"target" description:"how should seqd be running: server or alloc" default:"server"`
	Space  string `long:"space" description:"space to allocate from with --target=alloc" default:"meta"`
	Count  uint64 `long:"count" description:"numbers to allocate with --target=alloc" default:"1"`

	Config config.Flags `group:"Config Options"`
}

func main() {
	var opts Options
	log := logrus.WithFields(logrus.Fields{"app": "seqd"}).Logger

	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.WithError(err).Fatal("failed to parse command line args")
	}

	var cfg config.SeqallocConfig
	if err := cfg.LoadConfig(&opts.Config, log); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	logger := cfg.Config.Logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appState, err := state.New(&cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create application state")
	}

	switch opts.Target {
	case TargetServer:
		err = runServer(ctx, appState)
	case TargetAlloc:
		err = runAlloc(ctx, appState, opts.Space, opts.Count)
	default:
		err = fmt.Errorf("--target %q unknown", opts.Target)
	}
	if cerr := appState.Close(); cerr != nil {
		logger.WithError(cerr).Error("shutdown")
	}
	if err != nil {
		logger.WithError(err).Fatal("seqd failed")
	}
}

func runServer(ctx context.Context, appState *state.State) error {
	if err := appState.OpenServer(ctx); err != nil {
		return err
	}
	return seqapi.Serve(ctx, appState)
}

// runAlloc draws count numbers from a remote server and prints the granted
// ranges as JSON lines.
func runAlloc(ctx context.Context, appState *state.State, space string, count uint64) error {
	cfg := appState.ServerConfig.Config.Client
	if cfg.ServerURL == "" {
		return fmt.Errorf("client.server_url must be set with --target=%s", TargetAlloc)
	}

	remote, err := clients.NewSequenceClient(cfg.ServerURL,
		&http.Client{Timeout: cfg.RequestTimeout}, appState.Logger)
	if err != nil {
		return err
	}
	client := appState.OpenClient(remote)

	enc := json.NewEncoder(os.Stdout)
	for count > 0 {
		r, err := client.AllocateN(ctx, space, count)
		if err != nil {
			return err
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
		count -= r.Width()
	}
	return nil
}
