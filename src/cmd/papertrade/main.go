package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/paper-trading/src/cmd/papertrade/run"
	"github.com/jiaming2012/paper-trading/src/eventpubsub"
	"github.com/jiaming2012/paper-trading/src/papertrade/models"
	"github.com/jiaming2012/paper-trading/src/papertrade/router"
	"github.com/jiaming2012/paper-trading/src/papertrade/services"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "Inspect and drive a paper trading account from the command line",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the paper trading HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		eventpubsub.Init()

		r := mux.NewRouter()
		router.SetupHandler(r, engine)

		log.Infof("listening on :%s", port)
		if err := http.ListenAndServe(fmt.Sprintf(":%s", port), r); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	},
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show the account's cash, positions and total value",
	Run: func(cmd *cobra.Command, args []string) {
		accountID, _ := cmd.Flags().GetString("account")

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		ctx := context.Background()

		if _, err := engine.InitializePortfolio(ctx, accountID); err != nil {
			log.Fatalf("error initializing portfolio: %v", err)
		}

		portfolio, err := engine.GetPortfolio(ctx, accountID)
		if err != nil {
			log.Fatalf("error fetching portfolio: %v", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Contract", "Qty", "Avg Cost", "Price", "Market Value", "Unrealized PnL"})

		for _, position := range portfolio.PositionList() {
			table.Append([]string{
				position.Instrument.Key(),
				fmt.Sprintf("%.2f", position.Quantity),
				fmt.Sprintf("%.2f", position.AvgCost),
				fmt.Sprintf("%.2f", position.CurrentPrice),
				fmt.Sprintf("%.2f", position.MarketValue()),
				fmt.Sprintf("%.2f", position.UnrealizedPnL()),
			})
		}

		table.Render()

		fmt.Printf("Cash: %.2f\n", portfolio.CashBalance)
		fmt.Printf("Total value: %.2f\n", portfolio.TotalValue())
	},
}

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place an order, e.g. place --account demo --symbol AAPL --action BUY --quantity 10",
	Run: func(cmd *cobra.Command, args []string) {
		accountID, _ := cmd.Flags().GetString("account")
		symbol, _ := cmd.Flags().GetString("symbol")
		action, _ := cmd.Flags().GetString("action")
		quantity, _ := cmd.Flags().GetFloat64("quantity")
		orderType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetFloat64("limit")
		stopLoss, _ := cmd.Flags().GetFloat64("stop-loss")
		takeProfit, _ := cmd.Flags().GetFloat64("take-profit")
		reasoning, _ := cmd.Flags().GetString("reasoning")

		req := &services.PlaceTradeRequest{
			AccountID: accountID,
			Symbol:    symbol,
			Action:    models.OrderAction(action),
			Quantity:  quantity,
			Type:      models.OrderType(orderType),
			Reasoning: reasoning,
		}

		if limit > 0 {
			req.LimitPrice = &limit
		}

		if stopLoss > 0 {
			req.StopLoss = &stopLoss
		}

		if takeProfit > 0 {
			req.TakeProfit = &takeProfit
		}

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		ctx := context.Background()

		if _, err := engine.InitializePortfolio(ctx, accountID); err != nil {
			log.Fatalf("error initializing portfolio: %v", err)
		}

		orderID, err := engine.PlaceTrade(ctx, req)
		if err != nil {
			log.Fatalf("error placing trade: %v", err)
		}

		fmt.Printf("order placed: %s\n", orderID)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the synthetic options chain for an underlying",
	Run: func(cmd *cobra.Command, args []string) {
		symbol, _ := cmd.Flags().GetString("symbol")
		expirationStr, _ := cmd.Flags().GetString("expiration")

		var expiration *time.Time
		if expirationStr != "" {
			parsed, err := time.Parse("2006-01-02", expirationStr)
			if err != nil {
				log.Fatalf("error parsing expiration: %v", err)
			}

			atClose := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 21, 0, 0, 0, time.UTC)
			expiration = &atClose
		}

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		var chains []*models.OptionsChain

		if expiration != nil {
			chain, err := engine.GetOptionsChain(context.Background(), symbol, expiration)
			if err != nil {
				log.Fatalf("error generating chain: %v", err)
			}

			chains = append(chains, chain)
		} else {
			chains, err = engine.GetOptionsChains(context.Background(), symbol)
			if err != nil {
				log.Fatalf("error generating chains: %v", err)
			}
		}

		for _, chain := range chains {
			fmt.Printf("%s @ %.2f, expiring %s\n", chain.Underlying, chain.UnderlyingPrice, chain.Expiration.Format("2006-01-02"))

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Call Bid", "Call Ask", "Delta", "Strike", "Delta", "Put Bid", "Put Ask"})

			for i := range chain.Calls {
				call := chain.Calls[i]
				put := chain.Puts[i]

				table.Append([]string{
					fmt.Sprintf("%.2f", call.Bid),
					fmt.Sprintf("%.2f", call.Ask),
					fmt.Sprintf("%.3f", call.Greeks.Delta),
					fmt.Sprintf("%.2f", call.Strike),
					fmt.Sprintf("%.3f", put.Greeks.Delta),
					fmt.Sprintf("%.2f", put.Bid),
					fmt.Sprintf("%.2f", put.Ask),
				})
			}

			table.Render()
		}
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show realized performance for an account",
	Run: func(cmd *cobra.Command, args []string) {
		accountID, _ := cmd.Flags().GetString("account")

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		metrics, err := engine.GetPerformanceMetrics(context.Background(), accountID)
		if err != nil {
			log.Fatalf("error computing metrics: %v", err)
		}

		metricsJSON, err := json.MarshalIndent(metrics, "", "  ")
		if err != nil {
			log.Fatalf("error marshalling metrics: %v", err)
		}

		fmt.Println(string(metricsJSON))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the account's order history to CSV",
	Run: func(cmd *cobra.Command, args []string) {
		accountID, _ := cmd.Flags().GetString("account")
		outDir, _ := cmd.Flags().GetString("outDir")

		engine, err := run.BuildEngine()
		if err != nil {
			log.Fatalf("error building engine: %v", err)
		}

		orders, err := engine.GetOrders(accountID)
		if err != nil {
			log.Fatalf("error fetching orders: %v", err)
		}

		csvPath, err := run.ExportOrdersToCsv(outDir, accountID, orders)
		if err != nil {
			log.Fatalf("error exporting orders: %v", err)
		}

		fmt.Println("CSV file written to:", csvPath)
	},
}

func main() {
	serveCmd.Flags().String("port", "8080", "port to listen on")

	portfolioCmd.Flags().String("account", "", "account id")
	portfolioCmd.MarkFlagRequired("account")

	placeCmd.Flags().String("account", "", "account id")
	placeCmd.Flags().String("symbol", "", "ticker symbol")
	placeCmd.Flags().String("action", "BUY", "BUY or SELL")
	placeCmd.Flags().Float64("quantity", 0, "number of shares")
	placeCmd.Flags().String("type", "MARKET", "MARKET or LIMIT")
	placeCmd.Flags().Float64("limit", 0, "limit price")
	placeCmd.Flags().Float64("stop-loss", 0, "stop loss price")
	placeCmd.Flags().Float64("take-profit", 0, "take profit price")
	placeCmd.Flags().String("reasoning", "", "why the trade was placed")
	placeCmd.MarkFlagRequired("account")
	placeCmd.MarkFlagRequired("symbol")
	placeCmd.MarkFlagRequired("quantity")

	chainCmd.Flags().String("symbol", "", "underlying ticker symbol")
	chainCmd.Flags().String("expiration", "", "expiration date (YYYY-MM-DD)")
	chainCmd.MarkFlagRequired("symbol")

	metricsCmd.Flags().String("account", "", "account id")
	metricsCmd.MarkFlagRequired("account")

	exportCmd.Flags().String("account", "", "account id")
	exportCmd.Flags().String("outDir", "export", "output directory")
	exportCmd.MarkFlagRequired("account")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(placeCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(exportCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
