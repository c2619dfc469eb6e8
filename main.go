package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/data"
	"github.com/jiaming2012/paper-trading/src/dbutils"
	"github.com/jiaming2012/paper-trading/src/eventpubsub"
	"github.com/jiaming2012/paper-trading/src/marketdata"
	"github.com/jiaming2012/paper-trading/src/papertrade/router"
	"github.com/jiaming2012/paper-trading/src/papertrade/services"
	"github.com/jiaming2012/paper-trading/src/utils"
)

func newStore() (data.Store, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Warn("DATABASE_URL not set, falling back to in-memory persistence")
		return data.NewInMemoryStore(), nil
	}

	db, err := dbutils.InitPostgresWithUrl(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	return data.NewPostgresStore(db), nil
}

func newResolver() *marketdata.PriceResolver {
	fallback := marketdata.NewSyntheticQuoteProvider(nil)

	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		log.Warn("POLYGON_API_KEY not set, quotes are synthetic only")
		return marketdata.NewPriceResolver(nil, fallback)
	}

	primary := marketdata.NewPolygonQuoteProvider(apiKey, marketdata.DefaultQuoteTimeout)

	return marketdata.NewPriceResolver(primary, fallback)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Panic(err)
	}

	eventpubsub.Init()

	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(level)
	}

	port, err := utils.GetEnv("PORT")
	if err != nil {
		log.Fatalf("$PORT not set: %v", err)
	}

	cfg := services.DefaultConfig()
	if configFile := os.Getenv("PAPERTRADE_CONFIG_FILE"); configFile != "" {
		cfg, err = services.LoadConfig(configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	store, err := newStore()
	if err != nil {
		log.Fatalf("failed to set up persistence: %v", err)
	}

	engine := services.NewEngine(store, newResolver(), cfg, nil)

	r := mux.NewRouter()
	router.SetupHandler(r, engine)

	srv := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf(":%s", port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	<-stop

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down server: %v", err)
	}

	log.Info("Main: gracefully stopped!")
}
