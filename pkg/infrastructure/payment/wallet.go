package payment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"figurestore/pkg/domain/model"
)

var (
	ErrInsufficientFunds = model.NewError(model.ErrPaymentDeclined, "insufficient funds")
	ErrInvalidAmount     = model.NewError(model.ErrValidation, "amount must be positive and in whole cents")
)

type TransactionType int

const (
	Deposit TransactionType = iota
	Withdrawal
)

type TransactionStatus int

const (
	TxCommitted TransactionStatus = iota
	TxFailed
)

type Wallet struct {
	UserID    uuid.UUID
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

type Transaction struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Type         TransactionType
	Amount       decimal.Decimal
	ReferenceID  string // invoice id for charges
	Status       TransactionStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// WalletProcessor charges invoices against prepaid in-process wallets. A wallet is
// opened on first use with the configured seed balance. Charges are idempotent per
// invoice: repeating a committed charge is a no-op.
type WalletProcessor struct {
	mu           sync.Mutex
	seed         decimal.Decimal
	wallets      map[uuid.UUID]*Wallet
	transactions map[string]*Transaction
	logger       logrus.FieldLogger
}

func NewWalletProcessor(seed decimal.Decimal, logger logrus.FieldLogger) *WalletProcessor {
	return &WalletProcessor{
		seed:         seed,
		wallets:      make(map[uuid.UUID]*Wallet),
		transactions: make(map[string]*Transaction),
		logger:       logger,
	}
}

func (p *WalletProcessor) Charge(ctx context.Context, invoice *model.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.process(invoice.UserID, invoice.Total, invoice.ID.String(), Withdrawal)
	return err
}

func (p *WalletProcessor) Deposit(userID uuid.UUID, amount decimal.Decimal, referenceID string) (*Wallet, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(model.PriceScale)) {
		return nil, ErrInvalidAmount
	}
	return p.process(userID, amount, referenceID, Deposit)
}

// Refund returns a committed charge to the wallet. Refunding an unknown or
// declined charge is a no-op.
func (p *WalletProcessor) Refund(_ context.Context, invoice *model.Invoice) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := transactionKey(invoice.ID.String(), Withdrawal)
	tx, ok := p.transactions[key]
	if !ok || tx.Status != TxCommitted {
		return nil
	}
	wallet := p.wallet(tx.UserID)
	wallet.Balance = wallet.Balance.Add(tx.Amount)
	wallet.UpdatedAt = time.Now().UTC()
	delete(p.transactions, key)
	return nil
}

func (p *WalletProcessor) Balance(userID uuid.UUID) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wallet(userID).Balance
}

func (p *WalletProcessor) process(userID uuid.UUID, amount decimal.Decimal, referenceID string, txType TransactionType) (*Wallet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wallet := p.wallet(userID)
	key := transactionKey(referenceID, txType)
	if existing, ok := p.transactions[key]; ok && existing.Status == TxCommitted {
		clone := *wallet
		return &clone, nil
	}

	tx := &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}

	if txType == Withdrawal {
		if wallet.Balance.LessThan(amount) {
			tx.Status = TxFailed
			tx.ErrorMessage = ErrInsufficientFunds.Error()
			p.transactions[key] = tx
			p.logger.WithFields(logrus.Fields{
				"user_id":   userID,
				"reference": referenceID,
				"amount":    amount.StringFixed(2),
				"balance":   wallet.Balance.StringFixed(2),
			}).Warn("payment declined")
			return nil, ErrInsufficientFunds
		}
		wallet.Balance = wallet.Balance.Sub(amount)
	} else {
		wallet.Balance = wallet.Balance.Add(amount)
	}

	wallet.UpdatedAt = time.Now().UTC()
	tx.Status = TxCommitted
	p.transactions[key] = tx

	clone := *wallet
	return &clone, nil
}

func (p *WalletProcessor) wallet(userID uuid.UUID) *Wallet {
	wallet, ok := p.wallets[userID]
	if !ok {
		wallet = &Wallet{UserID: userID, Balance: p.seed, UpdatedAt: time.Now().UTC()}
		p.wallets[userID] = wallet
	}
	return wallet
}

func transactionKey(referenceID string, txType TransactionType) string {
	if txType == Withdrawal {
		return "charge:" + referenceID
	}
	return "deposit:" + referenceID
}
