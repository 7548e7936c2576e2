package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/openquant/tidemark/internal/clients/eodhd"
	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
	"github.com/openquant/tidemark/internal/services/returns"
	syncsvc "github.com/openquant/tidemark/internal/services/sync"
	"github.com/openquant/tidemark/internal/storage/badger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "update":
		err = runUpdate(os.Args[2:])
	case "series":
		err = runSeries(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "tidemark: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tidemark <update|series> [flags]")
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("TIDEMARK_CONFIG"), "config file path")
	kindName := fs.String("kind", "eod", "series kind: eod, dividend, forex, index")
	className := fs.String("class", "equity", "instrument class: equity, etf, index, forex")
	methodName := fs.String("method", "auto", "fetch method: auto, historical, bulk")
	fromStr := fs.String("from", "", "override fetch window start (YYYY-MM-DD)")
	toStr := fs.String("to", "", "override fetch window end (YYYY-MM-DD)")
	only := fs.String("only", "", "comma-separated identities to restrict the run to, e.g. BHP.AU")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kind, err := models.ParseSeriesKind(*kindName)
	if err != nil {
		return err
	}
	class, err := models.ParseInstrumentClass(*className)
	if err != nil {
		return err
	}
	method, err := models.ParseFetchMethod(*methodName)
	if err != nil {
		return err
	}

	config, logger, store, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	client := eodhd.NewClient(config.Provider.APIKey,
		eodhd.WithBaseURL(config.Provider.BaseURL),
		eodhd.WithLogger(logger),
		eodhd.WithRateLimit(config.Provider.RateLimit),
		eodhd.WithPoolSize(config.Provider.PoolSize),
		eodhd.WithRetries(config.Provider.Retries),
		eodhd.WithTimeout(config.Provider.GetTimeout()),
	)

	var opts []syncsvc.UpdateOption
	if *fromStr != "" || *toStr != "" {
		var from, to dates.Date
		if *fromStr != "" {
			if from, err = dates.Parse(*fromStr); err != nil {
				return err
			}
		}
		if *toStr != "" {
			if to, err = dates.Parse(*toStr); err != nil {
				return err
			}
		}
		opts = append(opts, syncsvc.WithWindow(from, to))
	}
	if *only != "" {
		opts = append(opts, syncsvc.WithInstruments(strings.Split(*only, ",")...))
	}

	service := syncsvc.NewService(client, store, logger, config.Sync.BulkWindowDays, config.Provider.PoolSize)
	return service.UpdateAll(context.Background(), kind, class, method, opts...)
}

func runSeries(args []string) error {
	fs := flag.NewFlagSet("series", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("TIDEMARK_CONFIG"), "config file path")
	identity := fs.String("instrument", "", "instrument identity, e.g. BHP.AU")
	kindName := fs.String("kind", "eod", "series kind: eod, dividend, forex, index")
	field := fs.String("field", "adjusted_close", "price field")
	viewName := fs.String("view", "price", "view: price, return, total_return, total_price")
	tidy := fs.Bool("tidy", false, "apply outlier cleaning")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ticker, exchange, ok := strings.Cut(*identity, ".")
	if !ok {
		return fmt.Errorf("instrument identity must be TICKER.EXCHANGE, got %q", *identity)
	}

	kind, err := models.ParseSeriesKind(*kindName)
	if err != nil {
		return err
	}
	view, err := returns.ParseView(*viewName)
	if err != nil {
		return err
	}

	_, logger, store, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	inst, err := store.FindByIdentity(ctx, ticker, exchange)
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("no tracked instrument %s", *identity)
	}

	service := returns.NewService(store, logger)
	series, err := service.Series(ctx, inst, kind, *field, view, *tidy)
	if err != nil {
		return err
	}

	for i := range series.Values {
		fmt.Printf("%s\t%g\n", series.Dates[i], series.Values[i])
	}
	return nil
}

func setup(configPath string) (*common.Config, *common.Logger, *badger.Store, error) {
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := badger.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	return config, logger, store, nil
}
