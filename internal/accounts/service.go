// Package accounts resolves which ledger account an import targets.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/ledger-import/internal/config"
	"github.com/cleared-dev/ledger-import/internal/model"
)

// ErrUnknownAccount is returned when no account matches an import.
var ErrUnknownAccount = errors.New("unknown account")

// Lister loads accounts from storage.
type Lister interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
}

// Service provides in-memory lookup over ledger accounts.
type Service struct {
	accounts   []model.Account
	byID       map[string]model.Account
	byExternal map[string]model.Account
}

// NewService creates a Service from a slice of accounts. When two accounts
// share an external ID the first one wins.
func NewService(accounts []model.Account) *Service {
	byID := make(map[string]model.Account, len(accounts))
	byExternal := make(map[string]model.Account)
	for _, a := range accounts {
		byID[a.ID] = a
		if a.ExternalID == "" {
			continue
		}
		if _, dup := byExternal[a.ExternalID]; !dup {
			byExternal[a.ExternalID] = a
		}
	}
	return &Service{accounts: accounts, byID: byID, byExternal: byExternal}
}

// Load reads all accounts through l and returns a Service.
func Load(ctx context.Context, l Lister) (*Service, error) {
	accts, err := l.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return NewService(accts), nil
}

// All returns all accounts.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.Account, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByExternalID returns the account linked to an institution account number
// (OFX ACCTID).
func (s *Service) ByExternalID(externalID string) (model.Account, bool) {
	if externalID == "" {
		return model.Account{}, false
	}
	a, ok := s.byExternal[externalID]
	return a, ok
}

// Resolve picks the import's target account: the explicit ID if given,
// otherwise the account linked to externalID.
func (s *Service) Resolve(id, externalID string) (model.Account, error) {
	if id != "" {
		if a, ok := s.Get(id); ok {
			return a, nil
		}
		return model.Account{}, fmt.Errorf("account %q: %w", id, ErrUnknownAccount)
	}
	if a, ok := s.ByExternalID(externalID); ok {
		return a, nil
	}
	if externalID == "" {
		return model.Account{}, fmt.Errorf("no account given and file has no account number: %w", ErrUnknownAccount)
	}
	return model.Account{}, fmt.Errorf("no account linked to %q: %w", externalID, ErrUnknownAccount)
}

// FromConfig converts configured bank accounts to ledger accounts.
func FromConfig(cfg []config.BankAccount) []model.Account {
	accts := make([]model.Account, 0, len(cfg))
	for _, b := range cfg {
		sign := model.SignConvention(b.Sign)
		if sign == "" {
			sign = model.SignInflowPositive
		}
		accts = append(accts, model.Account{
			ID:         b.AccountID,
			Name:       b.Name,
			ExternalID: b.ExternalID,
			Currency:   b.Currency,
			Sign:       sign,
		})
	}
	return accts
}
