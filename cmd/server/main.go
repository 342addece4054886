package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/capstone/board-back/pkg/boardservice"
	"github.com/capstone/board-back/pkg/boardstore"
	"github.com/capstone/board-back/pkg/config"
	"github.com/capstone/board-back/pkg/endpoint"
)

func die(logger log.Logger, err error) {
	logger.Log("startup_error", err)
	os.Exit(1)
}

func openStore(conf *config.Config) (boardstore.Store, error) {
	switch conf.Driver {
	case config.DriverSQLite:
		return boardstore.OpenSQLite(conf.SQLitePath)
	case config.DriverPostgres:
		return boardstore.OpenPostgres(conf.DSN())
	default:
		return boardstore.NewMemoryBoardStore()
	}
}

func importCSV(logger log.Logger, store boardstore.Store, path string) error {
	f, err := os.Open(path)

	if err != nil {
		return errors.Wrap(err, "Error while opening CSV file")
	}

	defer f.Close()

	n, err := boardstore.LoadFromCSV(store, f, true)

	if err != nil {
		return err
	}

	logger.Log("event", "csv_import", "path", path, "boards", n)

	return nil
}

// prepareStore opens the store with open and restores the configured CSV file
// into it. The store is closed again if the import fails.
func prepareStore(logger log.Logger, conf *config.Config, open func(*config.Config) (boardstore.Store, error)) (boardstore.Store, error) {
	store, err := open(conf)

	if err != nil {
		return nil, errors.Wrapf(err, "Error while creating %s board store", conf.Driver)
	}

	if conf.ImportCSV == "" {
		return store, nil
	}

	if err := importCSV(logger, store, conf.ImportCSV); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Log("event", "store_close_error", "error", closeErr)
		}

		return nil, errors.Wrap(err, "Error while importing boards")
	}

	return store, nil
}

func main() {
	envFile := flag.String("env", "", "Optional .env file loaded over the environment")
	listenAddress := flag.String("listen", "", "Address on which to start the HTTP server (overrides LISTEN_ADDRESS)")

	flag.Parse()

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	mainLogger := log.With(logger, "module", "main")

	conf, err := config.New(*envFile)

	if err != nil {
		die(mainLogger, errors.Wrap(err, "Error while loading configuration"))
	}

	if *listenAddress != "" {
		conf.ListenAddress = *listenAddress
	}

	users, err := conf.ParseUsers()

	if err != nil {
		die(mainLogger, errors.Wrap(err, "Error while parsing users"))
	}

	if len(users) == 0 {
		mainLogger.Log("warning", "You didn't provide any user, writing boards will not be possible!")
	}

	store, err := prepareStore(mainLogger, conf, openStore)

	if err != nil {
		die(mainLogger, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ep := endpoint.NewHttpEndpoint(logger, boardservice.New(store), users, registry)

	server := &http.Server{
		Addr:         conf.ListenAddress,
		Handler:      ep,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
	}

	mainLogger.Log("listen", conf.ListenAddress, "store", conf.Driver)
	err = server.ListenAndServe()
	store.Close()

	if err != nil {
		die(mainLogger, errors.Wrap(err, "Error while starting HTTP server"))
	}
}
