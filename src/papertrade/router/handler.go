package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
	"github.com/jiaming2012/paper-trading/src/papertrade/services"
)

var (
	engine  *services.Engine
	decoder = schema.NewDecoder()
)

type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func NewErrorResponse(errType string, message string) *errorResponse {
	return &errorResponse{
		Type: errType,
		Msg:  message,
	}
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("SetResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := NewErrorResponse(errType, err.Error())
	if encodeErr := json.NewEncoder(w).Encode(resp); encodeErr != nil {
		return encodeErr
	}

	return nil
}

// statusCodeForError maps the engine's sentinel errors onto HTTP status
// codes. Anything unrecognized is a server fault.
func statusCodeForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInstrument):
		return 400
	case errors.Is(err, models.ErrInsufficientFunds):
		return 402
	case errors.Is(err, models.ErrPortfolioNotFound), errors.Is(err, models.ErrOrderNotFound):
		return 404
	case errors.Is(err, models.ErrInsufficientHoldings), errors.Is(err, models.ErrOrderNotActionable):
		return 409
	default:
		return 500
	}
}

func handleInitializeAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	portfolio, err := engine.InitializePortfolio(r.Context(), vars["id"])
	if err != nil {
		setErrorResponse("initializeAccount: failed to initialize portfolio", statusCodeForError(err), err, w)
		return
	}

	if err := setResponse(portfolio, w); err != nil {
		setErrorResponse("initializeAccount: failed to set response", 500, err, w)
		return
	}
}

func handleGetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	portfolio, err := engine.GetPortfolio(r.Context(), vars["id"])
	if err != nil {
		setErrorResponse("getAccount: failed to get portfolio", statusCodeForError(err), err, w)
		return
	}

	if err := setResponse(portfolio, w); err != nil {
		setErrorResponse("getAccount: failed to set response", 500, err, w)
		return
	}
}

func handleResetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	portfolio, err := engine.ResetPortfolio(r.Context(), vars["id"])
	if err != nil {
		setErrorResponse("resetAccount: failed to reset portfolio", statusCodeForError(err), err, w)
		return
	}

	if err := setResponse(portfolio, w); err != nil {
		setErrorResponse("resetAccount: failed to set response", 500, err, w)
		return
	}
}

func handleAccount(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		handleInitializeAccount(w, r)
	case "GET":
		handleGetAccount(w, r)
	case "DELETE":
		handleResetAccount(w, r)
	default:
		w.WriteHeader(404)
	}
}

func handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req services.PlaceTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		setErrorResponse("placeOrder: failed to decode request", 400, err, w)
		return
	}

	req.AccountID = vars["id"]

	orderID, err := engine.PlaceTrade(r.Context(), &req)
	if err != nil {
		setErrorResponse("placeOrder: failed to place order", statusCodeForError(err), err, w)
		return
	}

	response := map[string]interface{}{
		"order_id": orderID,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("placeOrder: failed to set response", 500, err, w)
		return
	}
}

func handleListOrders(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	orders, err := engine.GetOrders(vars["id"])
	if err != nil {
		setErrorResponse("listOrders: failed to get orders", statusCodeForError(err), err, w)
		return
	}

	response := map[string]interface{}{
		"orders": orders,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("listOrders: failed to set response", 500, err, w)
		return
	}
}

func handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		handlePlaceOrder(w, r)
	case "GET":
		handleListOrders(w, r)
	default:
		w.WriteHeader(404)
	}
}

func handleCloseOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != "DELETE" {
		w.WriteHeader(404)
		return
	}

	vars := mux.Vars(r)
	orderID, err := uuid.Parse(vars["id"])
	if err != nil {
		setErrorResponse("closeOrder: failed to parse order id", 400, err, w)
		return
	}

	if err := engine.CloseTrade(r.Context(), orderID); err != nil {
		setErrorResponse("closeOrder: failed to close order", statusCodeForError(err), err, w)
		return
	}

	response := map[string]interface{}{
		"order_id": orderID,
		"status":   models.OrderStatusClosed,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("closeOrder: failed to set response", 500, err, w)
		return
	}
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(404)
		return
	}

	vars := mux.Vars(r)

	metrics, err := engine.GetPerformanceMetrics(r.Context(), vars["id"])
	if err != nil {
		setErrorResponse("getMetrics: failed to compute metrics", statusCodeForError(err), err, w)
		return
	}

	if err := setResponse(metrics, w); err != nil {
		setErrorResponse("getMetrics: failed to set response", 500, err, w)
		return
	}
}

type optionsChainQuery struct {
	Expiration string `schema:"expiration"`
}

func handleOptionsChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(404)
		return
	}

	vars := mux.Vars(r)

	if err := r.ParseForm(); err != nil {
		setErrorResponse("optionsChain: failed to parse form", 400, err, w)
		return
	}

	var query optionsChainQuery
	if err := decoder.Decode(&query, r.Form); err != nil {
		setErrorResponse("optionsChain: failed to decode query", 400, err, w)
		return
	}

	// without an expiration, serve a chain per configured upcoming expiration
	if query.Expiration == "" {
		chains, err := engine.GetOptionsChains(r.Context(), vars["symbol"])
		if err != nil {
			setErrorResponse("optionsChain: failed to generate chains", statusCodeForError(err), err, w)
			return
		}

		response := map[string]interface{}{
			"chains": chains,
		}

		if err := setResponse(response, w); err != nil {
			setErrorResponse("optionsChain: failed to set response", 500, err, w)
			return
		}

		return
	}

	parsed, err := time.Parse("2006-01-02", query.Expiration)
	if err != nil {
		setErrorResponse("optionsChain: failed to parse expiration", 400, err, w)
		return
	}

	// expire at the end of the trading day
	atClose := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 21, 0, 0, 0, time.UTC)

	chain, err := engine.GetOptionsChain(r.Context(), vars["symbol"], &atClose)
	if err != nil {
		setErrorResponse("optionsChain: failed to generate chain", statusCodeForError(err), err, w)
		return
	}

	if err := setResponse(chain, w); err != nil {
		setErrorResponse("optionsChain: failed to set response", 500, err, w)
		return
	}
}

func SetupHandler(router *mux.Router, papertradeEngine *services.Engine) {
	engine = papertradeEngine

	decoder.IgnoreUnknownKeys(true)

	router.HandleFunc("/accounts/{id}", handleAccount)
	router.HandleFunc("/accounts/{id}/orders", handleOrders)
	router.HandleFunc("/accounts/{id}/metrics", handleMetrics)
	router.HandleFunc("/orders/{id}", handleCloseOrder)
	router.HandleFunc("/options/{symbol}/chain", handleOptionsChain)
	router.HandleFunc("/ws", handleEventStream)
}
