package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
	"demo-bank/internal/service"
)

type TransactionHandler struct {
	queryService    *service.QueryService
	transferService *service.TransferService
}

func NewTransactionHandler(queryService *service.QueryService, transferService *service.TransferService) *TransactionHandler {
	return &TransactionHandler{
		queryService:    queryService,
		transferService: transferService,
	}
}

type TransactionResponse struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	AccountID   string      `json:"accountId"`
}

// TransferRequest accepts the amount as a JSON number or a numeric string.
type TransferRequest struct {
	FromAccountID string      `json:"fromAccountId" validate:"required"`
	ToAccountID   string      `json:"toAccountId" validate:"required"`
	Amount        json.Number `json:"amount" validate:"required"`
	Description   string      `json:"description" validate:"max=255"`
}

type TransferResponse struct {
	Message      string                `json:"message"`
	Accounts     []AccountResponse     `json:"accounts"`
	Transactions []TransactionResponse `json:"transactions"`
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	txns, err := h.queryService.ListTransactions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponses(txns))
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req TransferRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "Invalid amount format").WithDetails(err.Error()))
		return
	}

	result, err := h.transferService.Transfer(r.Context(), &service.TransferRequest{
		UserID:        userID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        amount,
		Description:   req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TransferResponse{
		Message:      "Transfer successful",
		Accounts:     toAccountResponses(result.Accounts),
		Transactions: toTransactionResponses(result.Transactions),
	})
}

func toTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, TransactionResponse{
			ID:          t.ID,
			Date:        t.Date,
			Description: t.Description,
			Amount:      money(t.Amount),
			Type:        string(t.Type),
			AccountID:   t.AccountID,
		})
	}
	return out
}
