package handler

import (
	"encoding/json"
	"net/http"

	"demo-bank/internal/domain"
	"demo-bank/internal/service"
)

type AccountHandler struct {
	queryService *service.QueryService
}

func NewAccountHandler(queryService *service.QueryService) *AccountHandler {
	return &AccountHandler{
		queryService: queryService,
	}
}

type AccountResponse struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	AccountNumber string      `json:"accountNumber"`
	Balance       json.Number `json:"balance"`
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	accounts, err := h.queryService.ListAccounts(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

func toAccountResponses(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountResponse{
			ID:            a.ID,
			Type:          string(a.Type),
			AccountNumber: a.AccountNumber,
			Balance:       money(a.Balance),
		})
	}
	return out
}
