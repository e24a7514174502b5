package transport

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/infrastructure/payment"
)

var (
	errWalletNotFound   = model.NewError(model.ErrNotFound, "wallet not found")
	errMissingReference = model.NewError(model.ErrValidation, "deposit reference cannot be empty")
)

// Wallets is the back-office side of the prepaid wallet processor.
type Wallets interface {
	Deposit(userID uuid.UUID, amount decimal.Decimal, referenceID string) (*payment.Wallet, error)
	Balance(userID uuid.UUID) decimal.Decimal
}

type depositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type walletResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance string    `json:"balance"`
}

// deposit tops up a wallet. Repeating a reference does not credit twice.
func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req depositRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		h.fail(w, r, errMissingReference)
		return
	}
	wallet, err := h.services.Wallets.Deposit(userID, req.Amount, reference)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.WithFields(log.Fields{"user_id": userID, "reference": reference}).Info("wallet deposit")
	writeJSON(w, http.StatusCreated, walletResponse{UserID: userID, Balance: money(wallet.Balance)})
}

func (h *Handler) wallet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !owns(identity(r), userID) {
		h.fail(w, r, errWalletNotFound)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{UserID: userID, Balance: money(h.services.Wallets.Balance(userID))})
}
