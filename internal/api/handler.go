package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/bankcore/internal/domain"
	"github.com/punchamoorthee/bankcore/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bank_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bank_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Handler is the thin HTTP surface over the ledger store. It validates
// parameters and maps business-rule errors to status codes; all semantics
// live in the store.
type Handler struct {
	store *store.LedgerStore
}

func NewHandler(s *store.LedgerStore) *Handler {
	return &Handler{store: s}
}

// Register mounts the ledger routes on the given router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/accounts", h.CreateAccountHandler).Methods("POST")
	r.HandleFunc("/accounts/{id}/deposits", h.DepositHandler).Methods("POST")
	r.HandleFunc("/accounts/{id}/balance", h.BalanceHandler).Methods("GET")
	r.HandleFunc("/accounts/{id}/credits/{creditID}", h.CreditStatusHandler).Methods("GET")
	r.HandleFunc("/transfers", h.TransferHandler).Methods("POST")
	r.HandleFunc("/withdrawals", h.WithdrawalHandler).Methods("POST")
	r.HandleFunc("/merges", h.MergeHandler).Methods("POST")
	r.HandleFunc("/top-spenders", h.TopSpendersHandler).Methods("GET")
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/accounts"))
	defer timer.ObserveDuration()

	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts")
		return
	}
	if req.AccountID == "" {
		h.respondError(w, http.StatusUnprocessableEntity, "Account id required", "POST", "/accounts")
		return
	}

	if err := h.store.CreateAccount(req.Timestamp, req.AccountID); err != nil {
		h.respondStoreError(w, err, "POST", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"account_id": req.AccountID}, "POST", "/accounts")
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/accounts/{id}/deposits"))
	defer timer.ObserveDuration()

	id := mux.Vars(r)["id"]

	var req domain.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts/{id}/deposits")
		return
	}
	if req.Amount <= 0 {
		h.respondError(w, http.StatusUnprocessableEntity, "Positive amount required", "POST", "/accounts/{id}/deposits")
		return
	}

	balance, err := h.store.Deposit(req.Timestamp, id, req.Amount)
	if err != nil {
		h.respondStoreError(w, err, "POST", "/accounts/{id}/deposits")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance}, "POST", "/accounts/{id}/deposits")
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}
	if req.Amount <= 0 {
		h.respondError(w, http.StatusUnprocessableEntity, "Positive amount required", "POST", "/transfers")
		return
	}

	balance, err := h.store.Transfer(req.Timestamp, req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.respondStoreError(w, err, "POST", "/transfers")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"balance": balance}, "POST", "/transfers")
}

func (h *Handler) WithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/withdrawals"))
	defer timer.ObserveDuration()

	var req domain.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/withdrawals")
		return
	}
	if req.Amount <= 0 {
		h.respondError(w, http.StatusUnprocessableEntity, "Positive amount required", "POST", "/withdrawals")
		return
	}

	creditID, err := h.store.Withdraw(req.Timestamp, req.AccountID, req.Amount)
	if err != nil {
		h.respondStoreError(w, err, "POST", "/withdrawals")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"credit_id": creditID}, "POST", "/withdrawals")
}

func (h *Handler) CreditStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timestamp, err := queryInt64(r, "timestamp")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid timestamp", "GET", "/accounts/{id}/credits/{creditID}")
		return
	}

	status, err := h.store.CreditStatus(timestamp, vars["id"], vars["creditID"])
	if err != nil {
		h.respondStoreError(w, err, "GET", "/accounts/{id}/credits/{creditID}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"credit_id": vars["creditID"],
		"status":    status.String(),
	}, "GET", "/accounts/{id}/credits/{creditID}")
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	timestamp, err := queryInt64(r, "timestamp")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid timestamp", "GET", "/accounts/{id}/balance")
		return
	}
	at, err := queryInt64(r, "at")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid at", "GET", "/accounts/{id}/balance")
		return
	}

	balance, err := h.store.BalanceAt(timestamp, id, at)
	if err != nil {
		h.respondStoreError(w, err, "GET", "/accounts/{id}/balance")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"account_id": id, "at": at, "balance": balance}, "GET", "/accounts/{id}/balance")
}

func (h *Handler) TopSpendersHandler(w http.ResponseWriter, r *http.Request) {
	timestamp, err := queryInt64(r, "timestamp")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid timestamp", "GET", "/top-spenders")
		return
	}
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		h.respondError(w, http.StatusUnprocessableEntity, "Positive n required", "GET", "/top-spenders")
		return
	}

	ranking := h.store.TopSpenders(timestamp, n)
	entries := make([]string, 0, len(ranking))
	for _, spender := range ranking {
		entries = append(entries, spender.String())
	}
	h.respondJSON(w, http.StatusOK, map[string][]string{"top_spenders": entries}, "GET", "/top-spenders")
}

func (h *Handler) MergeHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/merges"))
	defer timer.ObserveDuration()

	var req domain.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/merges")
		return
	}

	if err := h.store.Merge(req.Timestamp, req.SurvivorID, req.EliminatedID); err != nil {
		h.respondStoreError(w, err, "POST", "/merges")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"survivor_id": req.SurvivorID}, "POST", "/merges")
}

// Helpers

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Account not found", method, endpoint)
	case errors.Is(err, store.ErrForeignPayment):
		h.respondError(w, http.StatusNotFound, "Credit not found for account", method, endpoint)
	case errors.Is(err, store.ErrAlreadyExists):
		h.respondError(w, http.StatusConflict, "Account already exists", method, endpoint)
	case errors.Is(err, store.ErrSameAccount):
		h.respondError(w, http.StatusUnprocessableEntity, "Self-transfer not allowed", method, endpoint)
	case errors.Is(err, store.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, "Insufficient funds", method, endpoint)
	case errors.Is(err, store.ErrInvalidMerge):
		h.respondError(w, http.StatusUnprocessableEntity, "Merge requires two active root accounts", method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}
