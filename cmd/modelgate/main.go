// Package main provides the modelgate command line client. It connects to a
// remote engine bus, manages stored provider credentials, and issues one-off
// streaming generation requests from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	log "github.com/talkcody/modelgate/internal/logging"

	"github.com/talkcody/modelgate/internal/config"
	"github.com/talkcody/modelgate/pkg/modelgate"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// A local .env can carry the engine URL during development.
	_ = godotenv.Load()

	var (
		configPath string
		engineURL  string
		logFile    string
		debug      bool
		version    bool

		listModels bool
		setKey     string
		removeKey  string

		model  string
		prompt string
		raw    bool
	)

	flag.StringVarP(&configPath, "config", "c", "", "configuration file path")
	flag.StringVar(&engineURL, "engine-url", "", "websocket URL of the engine bus")
	flag.StringVar(&logFile, "log-file", "", "write logs to a rotated file")
	flag.BoolVarP(&debug, "verbose", "v", false, "enable debug logging")
	flag.BoolVar(&version, "version", false, "print version and exit")

	flag.BoolVar(&listModels, "list-models", false, "list currently available models")
	flag.StringVar(&setKey, "set-key", "", "store a provider API key as provider=KEY")
	flag.StringVar(&removeKey, "remove-key", "", "remove the stored API key for a provider")

	flag.StringVarP(&model, "model", "m", "", "model key, optionally suffixed @provider")
	flag.StringVarP(&prompt, "prompt", "p", "", "prompt to send")
	flag.BoolVar(&raw, "stream", false, "print deltas as they arrive instead of the final text")

	flag.Parse()

	if version {
		fmt.Printf("modelgate %s (%s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	if configPath == "" {
		configPath = filepath.Join(config.DataDir(), "config.yaml")
	}
	cfg, err := modelgate.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if engineURL == "" {
		engineURL = os.Getenv("MODELGATE_ENGINE_URL")
	}
	if engineURL != "" {
		cfg.EngineURL = engineURL
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.Debug = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := modelgate.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("cannot open gateway")
	}
	defer gw.Close()

	switch {
	case setKey != "":
		doSetKey(ctx, gw, setKey)
	case removeKey != "":
		if err := gw.SetAPIKey(ctx, removeKey, ""); err != nil {
			log.WithError(err).Fatal("cannot remove key")
		}
		fmt.Printf("removed key for %s\n", removeKey)
	case listModels:
		doListModels(gw)
	case prompt != "":
		doPrompt(ctx, gw, model, prompt, raw)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func doSetKey(ctx context.Context, gw *modelgate.Gateway, spec string) {
	provider, key, ok := strings.Cut(spec, "=")
	if !ok || provider == "" || key == "" {
		log.Fatal("--set-key expects provider=KEY")
	}
	if err := gw.SetAPIKey(ctx, provider, key); err != nil {
		log.WithError(err).Fatal("cannot store key")
	}
	fmt.Printf("stored key for %s\n", provider)
}

func doListModels(gw *modelgate.Gateway) {
	models := gw.AvailableModels()
	if len(models) == 0 {
		fmt.Println("no models available; store a provider key with --set-key")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT\tIN $/M\tOUT $/M")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n",
			m.Key, m.ProviderID, m.ContextWindow, m.Pricing.Input, m.Pricing.Output)
	}
	w.Flush()
}

func doPrompt(ctx context.Context, gw *modelgate.Gateway, model, prompt string, raw bool) {
	if model == "" {
		am, ok := gw.GetAvailableModel("")
		if !ok {
			log.Fatal("no models available; store a provider key with --set-key")
		}
		model = am.Key
		log.WithField("model", model).Debug("no model given, using cheapest available")
	}

	req := modelgate.Request{
		Model:    model,
		Messages: []modelgate.Message{{Role: modelgate.RoleUser, Content: prompt}},
	}

	if raw {
		s, err := gw.StreamText(ctx, req)
		if err != nil {
			log.WithError(err).Fatal("request failed")
		}
		defer s.Close()
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				break
			}
			if ev.Text != "" {
				fmt.Print(ev.Text)
			}
		}
		fmt.Println()
		return
	}

	res, err := gw.CollectText(ctx, req)
	if err != nil {
		log.WithError(err).Fatal("request failed")
	}
	fmt.Println(res.Text)
	if res.Usage != nil {
		note := ""
		if res.Usage.Estimated {
			note = " (estimated)"
		}
		log.WithFields(log.Fields{
			"input":  res.Usage.InputTokens,
			"output": res.Usage.OutputTokens,
		}).Debugf("token usage%s", note)
	}
}
