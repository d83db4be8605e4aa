/**
 * @description
 * This file contains the HTTP handlers for the wallet-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - golang.org/x/crypto/bcrypt: Password hashing at the edge.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flowpurse/wallet-service/internal/app"
	"github.com/flowpurse/wallet-service/internal/domain"
	"github.com/flowpurse/wallet-service/internal/store"
)

const bcryptCost = 10

// WalletHandlers holds the application service that handlers will use.
type WalletHandlers struct {
	service   *app.Service
	jwtSecret string
	jwtTTL    time.Duration
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service, jwtSecret string, jwtTTL time.Duration) *WalletHandlers {
	return &WalletHandlers{service: service, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

type signupResponse struct {
	Message       string       `json:"message"`
	User          *domain.User `json:"user"`
	AccountNumber int64        `json:"account_number"`
	Token         string       `json:"token"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token"`
}

type balanceResponse struct {
	Message       string `json:"message"`
	AccountNumber int64  `json:"account_number"`
	Balance       string `json:"balance"`
}

func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *WalletHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "Amount must be a positive number.")
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Account not found.")
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, "Insufficient funds.")
	case errors.Is(err, store.ErrUserExists):
		h.writeError(w, http.StatusBadRequest, "A user with this email already exists... Please, login.")
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Too many wallet operations. Please slow down.")
	case errors.Is(err, store.ErrStoreUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "Ledger store unavailable. Please retry.")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// SignupHandler handles user registration. The raw password never leaves this
// handler: it is bcrypt-hashed here and only the hash reaches the service.
func (h *WalletHandlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Firstname == "" || req.Lastname == "" || req.Email == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "firstname, lastname, email, and password are required.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Printf("level=error component=api msg=\"password hash failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Error registering user.")
		return
	}

	user := &domain.User{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		PhoneNumber:  req.PhoneNumber,
		Gender:       req.Gender,
		Age:          req.Age,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	created, account, err := h.service.Register(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	token, err := IssueToken(h.jwtSecret, created.ID, h.jwtTTL)
	if err != nil {
		log.Printf("level=error component=api msg=\"token issue failed\" user_id=%s err=%v", created.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Error registering user.")
		return
	}

	h.writeJSON(w, http.StatusOK, signupResponse{
		Message:       "User registered successfully",
		User:          created,
		AccountNumber: account.AccountNumber,
		Token:         token,
	})
}

// LoginHandler authenticates a user by email and password and returns a token.
func (h *WalletHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.service.UserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusUnauthorized, "No user with that email found... Kindly signup!")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.writeError(w, http.StatusUnauthorized, "Password mismatch.")
		return
	}

	token, err := IssueToken(h.jwtSecret, user.ID, h.jwtTTL)
	if err != nil {
		log.Printf("level=error component=api msg=\"token issue failed\" user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to log in.")
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{Message: "Login accepted", User: user, Token: token})
}

// FundWalletHandler handles deposits into an account.
func (h *WalletHandlers) FundWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Amount must be a positive number.")
		return
	}

	account, err := h.service.Deposit(r.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		if errors.Is(err, app.ErrRecordingFailed) && account != nil {
			h.writeRecordingFailed(w, account)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Message:       fmt.Sprintf("You have successfully funded your wallet with %s", req.Amount.StringFixed(2)),
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance.StringFixed(2),
	})
}

// WithdrawHandler handles withdrawals from an account.
func (h *WalletHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Amount must be a positive number.")
		return
	}

	account, err := h.service.Withdraw(r.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		if errors.Is(err, app.ErrRecordingFailed) && account != nil {
			h.writeRecordingFailed(w, account)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Message:       fmt.Sprintf("You have successfully withdrawn %s from your wallet.", req.Amount.StringFixed(2)),
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance.StringFixed(2),
	})
}

// TransferHandler handles transfers between two accounts.
func (h *WalletHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Amount must be a positive number.")
		return
	}
	if req.SenderAccountNumber == req.RecipientAccountNumber {
		h.writeError(w, http.StatusBadRequest, "Sender and recipient accounts must differ.")
		return
	}

	sender, err := h.service.Transfer(r.Context(), req.SenderAccountNumber, req.RecipientAccountNumber, req.Amount)
	if err != nil {
		if errors.Is(err, app.ErrRecordingFailed) && sender != nil {
			h.writeRecordingFailed(w, sender)
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Message:       fmt.Sprintf("You have successfully transferred %s.", req.Amount.StringFixed(2)),
		AccountNumber: sender.AccountNumber,
		Balance:       sender.Balance.StringFixed(2),
	})
}

// writeRecordingFailed reports the distinct post-commit failure mode: the
// balance change is durable but the audit row was not written. The response
// must say so explicitly so the caller knows funds moved.
func (h *WalletHandlers) writeRecordingFailed(w http.ResponseWriter, account *domain.Account) {
	log.Printf("level=error component=api msg=\"balance committed but audit record failed\" account_number=%d", account.AccountNumber)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "The balance change was applied, but recording the transaction failed. Your history may be incomplete.",
		"balance": account.Balance.StringFixed(2),
	})
}

// BalanceHandler returns the current balance of the caller's own account.
func (h *WalletHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountNumber, err := strconv.ParseInt(chi.URLParam(r, "accountNumber"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account number.")
		return
	}

	account, err := h.service.Account(r.Context(), accountNumber)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if authID, ok := GetAuthUserID(r.Context()); ok && authID != account.UserID {
		h.writeError(w, http.StatusForbidden, "You can only view your own balance.")
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Message:       "Balance retrieved successfully",
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance.StringFixed(2),
	})
}

// TransactionHistoryHandler returns the authenticated user's ledger rows,
// newest first. A user may only read their own history.
func (h *WalletHandlers) TransactionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	if authID, ok := GetAuthUserID(r.Context()); ok && authID != userID {
		h.writeError(w, http.StatusForbidden, "You can only view your own transaction history.")
		return
	}

	views, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}
