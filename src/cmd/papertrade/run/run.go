package run

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/data"
	"github.com/jiaming2012/paper-trading/src/dbutils"
	"github.com/jiaming2012/paper-trading/src/marketdata"
	"github.com/jiaming2012/paper-trading/src/papertrade/services"
	"github.com/jiaming2012/paper-trading/src/utils"
)

// BuildEngine wires a trading engine from the process environment, the same
// way the server does: postgres when DATABASE_URL is set, in-memory
// otherwise, polygon quotes when POLYGON_API_KEY is set, synthetic otherwise.
func BuildEngine() (*services.Engine, error) {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return nil, fmt.Errorf("BuildEngine: failed to init environment: %w", err)
	}

	var store data.Store

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := dbutils.InitPostgresWithUrl(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("BuildEngine: failed to init db: %w", err)
		}

		store = data.NewPostgresStore(db)
	} else {
		log.Warn("DATABASE_URL not set, state will not survive this process")
		store = data.NewInMemoryStore()
	}

	fallback := marketdata.NewSyntheticQuoteProvider(nil)

	var primary marketdata.QuoteProvider
	if apiKey := os.Getenv("POLYGON_API_KEY"); apiKey != "" {
		primary = marketdata.NewPolygonQuoteProvider(apiKey, marketdata.DefaultQuoteTimeout)
	}

	cfg := services.DefaultConfig()
	if configFile := os.Getenv("PAPERTRADE_CONFIG_FILE"); configFile != "" {
		var err error
		cfg, err = services.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
	}

	return services.NewEngine(store, marketdata.NewPriceResolver(primary, fallback), cfg, nil), nil
}
