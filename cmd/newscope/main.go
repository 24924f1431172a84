package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/yifanzh/newscope/app_config"
	"github.com/yifanzh/newscope/enrich"
	"github.com/yifanzh/newscope/llm"
	"github.com/yifanzh/newscope/orchestrator"
	"github.com/yifanzh/newscope/recommend"
	"github.com/yifanzh/newscope/store"
	"github.com/yifanzh/newscope/utils/dotenv"
	Logger "github.com/yifanzh/newscope/utils/log"
)

var (
	configPath = flag.String("config", "newscope.yaml", "path to the app config file")
	runOnce    = flag.Bool("once", false, "run a single refresh cycle and exit")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		Logger.Log.Fatal(err)
	}
}

func run() error {
	if err := dotenv.LoadDotEnvs(); err != nil {
		return errors.Wrap(err, "load env")
	}
	cfg, err := app_config.ParseAppConfig(*configPath)
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SeedSources(cfg.SeededSources()); err != nil {
		return errors.Wrap(err, "seed sources")
	}

	provider, err := llm.NewProvider(cfg.Llm)
	if err != nil {
		// missing credential or unknown provider: enrichment degrades to
		// local fallbacks instead of aborting
		Logger.Log.Warn("text-completion provider unavailable: ", err)
		provider = nil
	}

	engine := recommend.NewEngine(s)
	if cfg.ExplorationRate > 0 {
		engine.SetExplorationRate(cfg.ExplorationRate)
	}

	o, err := orchestrator.New(s, engine, enrich.NewExtractor(provider))
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.Refresh(); err != nil {
		return err
	}
	if *runOnce {
		return nil
	}

	if err := o.StartPeriodicRefresh(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	Logger.Log.Info("shutting down")
	return nil
}
