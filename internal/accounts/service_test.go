package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger-import/internal/config"
	"github.com/cleared-dev/ledger-import/internal/model"
)

func sampleAccounts() []model.Account {
	return []model.Account{
		{ID: "checking", Name: "Checking", ExternalID: "000123456789", Currency: "USD", Sign: model.SignInflowPositive},
		{ID: "card", Name: "Visa", ExternalID: "4111", Currency: "USD", Sign: model.SignInflowNegative},
		{ID: "shadow", Name: "Shadow", ExternalID: "4111"},
		{ID: "cash", Name: "Cash"},
	}
}

func TestNewService(t *testing.T) {
	svc := NewService(sampleAccounts())
	assert.Len(t, svc.All(), 4)
}

func TestGetExists(t *testing.T) {
	svc := NewService(sampleAccounts())

	acct, ok := svc.Get("checking")
	assert.True(t, ok)
	assert.Equal(t, "Checking", acct.Name)

	_, ok = svc.Get("nope")
	assert.False(t, ok)

	assert.True(t, svc.Exists("cash"))
	assert.False(t, svc.Exists("nope"))
}

func TestByExternalID(t *testing.T) {
	svc := NewService(sampleAccounts())

	acct, ok := svc.ByExternalID("4111")
	require.True(t, ok)
	assert.Equal(t, "card", acct.ID, "first account wins on a shared external id")

	_, ok = svc.ByExternalID("")
	assert.False(t, ok)
	_, ok = svc.ByExternalID("999")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	svc := NewService(sampleAccounts())

	acct, err := svc.Resolve("cash", "000123456789")
	require.NoError(t, err)
	assert.Equal(t, "cash", acct.ID, "explicit id beats linking")

	acct, err = svc.Resolve("", "000123456789")
	require.NoError(t, err)
	assert.Equal(t, "checking", acct.ID)

	_, err = svc.Resolve("nope", "")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	_, err = svc.Resolve("", "")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	_, err = svc.Resolve("", "555")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

type stubLister struct {
	accts []model.Account
	err   error
}

func (l stubLister) ListAccounts(context.Context) ([]model.Account, error) {
	return l.accts, l.err
}

func TestLoad(t *testing.T) {
	svc, err := Load(context.Background(), stubLister{accts: sampleAccounts()})
	require.NoError(t, err)
	assert.True(t, svc.Exists("card"))

	_, err = Load(context.Background(), stubLister{err: errors.New("db down")})
	assert.ErrorContains(t, err, "db down")
}

func TestFromConfig(t *testing.T) {
	accts := FromConfig([]config.BankAccount{
		{Name: "Chase Checking", AccountID: "checking", ExternalID: "1234", Currency: "USD"},
		{Name: "Amex", AccountID: "amex", Sign: "inflow-negative"},
	})
	require.Len(t, accts, 2)
	assert.Equal(t, model.SignInflowPositive, accts[0].Sign)
	assert.Equal(t, "1234", accts[0].ExternalID)
	assert.Equal(t, model.SignInflowNegative, accts[1].Sign)
}
