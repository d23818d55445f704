package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymngr/moneymngr/internal/model"
	"github.com/moneymngr/moneymngr/internal/store"
	"github.com/moneymngr/moneymngr/internal/threshold"
)

type fixture struct {
	svc    *Service
	store  *store.Store
	bank   string
	cash   string
	person string
	food   string
	salary string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	now := store.Now()
	for _, a := range []model.Account{
		{ID: "bank", Name: "Bank", Type: model.AccountTypeBank, Balance: dec("1000"), ThresholdValue: dec("500"), CreatedAt: now, UpdatedAt: now},
		{ID: "cash", Name: "Cash", Type: model.AccountTypeCash, Balance: dec("100"), CreatedAt: now, UpdatedAt: now},
		{ID: "ravi", Name: "Ravi", Type: model.AccountTypePerson, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.InsertAccount(ctx, a))
	}
	for _, c := range []model.Category{
		{ID: "food", Name: "Food", Type: model.CategoryTypeExpense, CreatedAt: now, UpdatedAt: now},
		{ID: "salary", Name: "Salary", Type: model.CategoryTypeIncome, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.InsertCategory(ctx, c))
	}

	return fixture{svc: NewService(s, nil), store: s, bank: "bank", cash: "cash", person: "ravi", food: "food", salary: "salary"}
}

func (f fixture) balance(t *testing.T, id string) string {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func (f fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountTransactions(context.Background())
	require.NoError(t, err)
	return n
}

func TestCreate_Expense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, CreateParams{
		Date: date(2025, 1, 15), Amount: dec("200"), Type: model.TransactionTypeExpense,
		FromAccountID: f.bank, ToAccountID: f.cash, CategoryID: f.food, Description: " chai ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, tx.Status)
	assert.Equal(t, model.SourceManual, tx.Source)
	assert.Empty(t, tx.ToAccountID, "expense never credits an account")
	assert.Equal(t, "chai", tx.Description)

	assert.Equal(t, "800.00", f.balance(t, f.bank))
	assert.Equal(t, "100.00", f.balance(t, f.cash))
}

func TestCreate_IncomeCreditsToAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{
		Amount: dec("50000"), Type: model.TransactionTypeIncome, ToAccountID: f.bank, CategoryID: f.salary,
	})
	require.NoError(t, err)
	assert.Equal(t, "51000.00", f.balance(t, f.bank))
}

func TestCreate_ValidationBlocksWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{Amount: dec("0"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount", verr.Field)

	_, err = f.svc.Create(ctx, CreateParams{Amount: dec("5"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.salary})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "categoryId", verr.Field, "income category on an expense")

	assert.Zero(t, f.count(t))
	assert.Equal(t, "1000.00", f.balance(t, f.bank))
}

func TestCreate_AtomicOnMissingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{
		Amount: dec("30"), Type: model.TransactionTypeTransfer, FromAccountID: f.bank, ToAccountID: "ghost",
	})
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
	assert.Zero(t, f.count(t), "no transaction row persisted")
	assert.Equal(t, "1000.00", f.balance(t, f.bank), "no balance change persisted")
}

func TestCreate_MissingCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateParams{
		Amount: dec("30"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: "ghost",
	})
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
	assert.Zero(t, f.count(t))
}

func TestBalanceConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := []CreateParams{
		{Amount: dec("12.34"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food},
		{Amount: dec("250"), Type: model.TransactionTypeIncome, ToAccountID: f.cash, CategoryID: f.salary},
		{Amount: dec("99.99"), Type: model.TransactionTypeTransfer, FromAccountID: f.cash, ToAccountID: f.bank},
		{Amount: dec("0.01"), Type: model.TransactionTypeExpense, FromAccountID: f.cash, CategoryID: f.food, Status: model.StatusPending},
		{Amount: dec("40"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food, IsLinked: true, PersonAccountID: f.person},
	}

	var ids []string
	for _, p := range params {
		tx, err := f.svc.Create(ctx, p)
		require.NoError(t, err)
		ids = append(ids, tx.ID)
	}
	assert.NotEqual(t, "1000.00", f.balance(t, f.bank))

	for i := len(ids) - 1; i >= 0; i-- {
		require.NoError(t, f.svc.Delete(ctx, ids[i]))
	}

	assert.Equal(t, "1000.00", f.balance(t, f.bank))
	assert.Equal(t, "100.00", f.balance(t, f.cash))
	assert.Equal(t, "0.00", f.balance(t, f.person))
	assert.Zero(t, f.count(t))
}

func TestLinkedTransactionCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	primary, err := f.svc.Create(ctx, CreateParams{
		Amount: dec("300"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food,
		Description: "dinner", IsLinked: true, PersonAccountID: f.person,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.count(t))

	linked, err := f.svc.Get(ctx, primary.LinkedTransactionID)
	require.NoError(t, err)
	assert.Equal(t, primary.ID, linked.LinkedTransactionID, "mirrored link")
	assert.Equal(t, model.TransactionTypeIncome, linked.Type)
	assert.Equal(t, f.person, linked.ToAccountID)
	assert.Equal(t, "Linked: dinner", linked.Description)
	assert.Equal(t, "700.00", f.balance(t, f.bank))
	assert.Equal(t, "300.00", f.balance(t, f.person))

	require.NoError(t, f.svc.Delete(ctx, primary.ID))
	assert.Zero(t, f.count(t))
	assert.Equal(t, "1000.00", f.balance(t, f.bank))
	assert.Equal(t, "0.00", f.balance(t, f.person))
}

func TestCreate_LinkedRequiresPersonAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateParams{
		Amount: dec("10"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food,
		IsLinked: true, PersonAccountID: f.cash,
	})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "personAccountId", verr.Field)
	assert.Zero(t, f.count(t))
}

func TestUpdate_ReversesThenReapplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, CreateParams{Amount: dec("100"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	require.NoError(t, err)

	amount := dec("30")
	from := f.cash
	_, err = f.svc.Update(ctx, tx.ID, UpdateParams{Amount: &amount, FromAccountID: &from})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.balance(t, f.bank), "old effect reversed")
	assert.Equal(t, "70.00", f.balance(t, f.cash), "new effect applied")

	typ := model.TransactionTypeTransfer
	to := f.bank
	_, err = f.svc.Update(ctx, tx.ID, UpdateParams{Type: &typ, ToAccountID: &to})
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CategoryID, "transfer drops category")
	assert.Equal(t, "1030.00", f.balance(t, f.bank))
	assert.Equal(t, "70.00", f.balance(t, f.cash))
}

func TestUpdate_InvalidLeavesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, CreateParams{Amount: dec("100"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	require.NoError(t, err)

	ghost := "ghost"
	_, err = f.svc.Update(ctx, tx.ID, UpdateParams{FromAccountID: &ghost})
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
	assert.Equal(t, "900.00", f.balance(t, f.bank))

	got, err := f.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bank, got.FromAccountID)
}

func TestUpdate_LinkedPairStaysInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	primary, err := f.svc.Create(ctx, CreateParams{
		Amount: dec("300"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food,
		IsLinked: true, PersonAccountID: f.person,
	})
	require.NoError(t, err)

	amount := dec("120")
	_, err = f.svc.Update(ctx, primary.ID, UpdateParams{Amount: &amount})
	require.NoError(t, err)

	linked, err := f.svc.Get(ctx, primary.LinkedTransactionID)
	require.NoError(t, err)
	assert.Equal(t, "120.00", linked.Amount.StringFixed(2))
	assert.Equal(t, "880.00", f.balance(t, f.bank))
	assert.Equal(t, "120.00", f.balance(t, f.person))

	desc := "settled later"
	_, err = f.svc.Update(ctx, linked.ID, UpdateParams{Description: &desc})
	require.NoError(t, err, "receivable rows edit without a category")
}

func TestBulkDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateParams{Amount: dec("10"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, CreateParams{
		Amount: dec("20"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food,
		IsLinked: true, PersonAccountID: f.person,
	})
	require.NoError(t, err)
	keep, err := f.svc.Create(ctx, CreateParams{Amount: dec("5"), Type: model.TransactionTypeExpense, FromAccountID: f.cash, CategoryID: f.food})
	require.NoError(t, err)

	res, err := f.svc.BulkDelete(ctx, []string{a.ID, b.ID, b.LinkedTransactionID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Affected)
	assert.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "ghost")

	assert.Equal(t, 1, f.count(t))
	_, err = f.svc.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.balance(t, f.bank))
	assert.Equal(t, "0.00", f.balance(t, f.person))
	assert.Equal(t, "95.00", f.balance(t, f.cash))
}

func TestBulkEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := store.Now()
	require.NoError(t, f.store.InsertCategory(ctx, model.Category{ID: "fuel", Name: "Fuel", Type: model.CategoryTypeExpense, CreatedAt: now, UpdatedAt: now}))

	exp, err := f.svc.Create(ctx, CreateParams{Amount: dec("10"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	require.NoError(t, err)
	inc, err := f.svc.Create(ctx, CreateParams{Amount: dec("7"), Type: model.TransactionTypeIncome, ToAccountID: f.bank, CategoryID: f.salary})
	require.NoError(t, err)

	fuel := "fuel"
	cash := f.cash
	res, err := f.svc.BulkEdit(ctx, []string{exp.ID, inc.ID}, BulkEditParams{CategoryID: &fuel, AccountID: &cash})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	require.Len(t, res.Errors, 1, "expense category cannot go on income")

	got, err := f.svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "fuel", got.CategoryID)
	assert.Equal(t, f.cash, got.FromAccountID)
	assert.Equal(t, "1007.00", f.balance(t, f.bank))
	assert.Equal(t, "90.00", f.balance(t, f.cash))

	_, err = f.svc.BulkEdit(ctx, []string{exp.ID}, BulkEditParams{})
	assert.Error(t, err)
}

func TestConfirmAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1, err := f.svc.Create(ctx, CreateParams{Amount: dec("10"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food, Status: model.StatusPending, Source: model.SourceSMS})
	require.NoError(t, err)
	p2, err := f.svc.Create(ctx, CreateParams{Amount: dec("20"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food, Status: model.StatusPending, Source: model.SourceSMS})
	require.NoError(t, err)
	assert.Equal(t, "970.00", f.balance(t, f.bank), "pending rows carry their effect")

	confirmed, err := f.svc.Confirm(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	assert.Equal(t, "970.00", f.balance(t, f.bank))

	rejected, err := f.svc.Reject(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "990.00", f.balance(t, f.bank))

	_, err = f.svc.Reject(ctx, p1.ID)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)

	amount := dec("5")
	_, err = f.svc.Update(ctx, p2.ID, UpdateParams{Amount: &amount})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
	assert.Contains(t, verr.Message, "rejected transactions are final")
	assert.Equal(t, "990.00", f.balance(t, f.bank))

	require.NoError(t, f.svc.Delete(ctx, p2.ID))
	assert.Equal(t, "990.00", f.balance(t, f.bank), "deleting a rejected row moves nothing")
}

func TestConfirmAndReject_LinkedPairMovesTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := func() model.Transaction {
		tx, err := f.svc.Create(ctx, CreateParams{
			Amount: dec("40"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food,
			Status: model.StatusPending, IsLinked: true, PersonAccountID: f.person,
		})
		require.NoError(t, err)
		linked, err := f.svc.Get(ctx, tx.LinkedTransactionID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, linked.Status)
		return tx
	}

	rejected := pending()
	assert.Equal(t, "960.00", f.balance(t, f.bank))
	assert.Equal(t, "40.00", f.balance(t, f.person))

	_, err := f.svc.Reject(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", f.balance(t, f.bank))
	assert.Equal(t, "0.00", f.balance(t, f.person))
	linked, err := f.svc.Get(ctx, rejected.LinkedTransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, linked.Status)

	confirmed := pending()
	_, err = f.svc.Confirm(ctx, confirmed.LinkedTransactionID)
	require.NoError(t, err)
	primary, err := f.svc.Get(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, primary.Status)
	assert.Equal(t, "960.00", f.balance(t, f.bank))
	assert.Equal(t, "40.00", f.balance(t, f.person))
}

func TestThresholdPreview(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.ThresholdPreview(context.Background(), f.bank, dec("400"), threshold.Evaluator{Symbol: "₹"})
	require.NoError(t, err)
	assert.Equal(t, "600.00", p.NewBalance.StringFixed(2))
	assert.Equal(t, "100.00", p.SafeBalance.StringFixed(2))
	assert.True(t, p.IsAboveThreshold)
	assert.Equal(t, threshold.StatusCritical, p.Evaluation.Status)

	_, err = f.svc.ThresholdPreview(context.Background(), "ghost", dec("1"), threshold.Evaluator{})
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{Date: date(2025, 1, 1), Amount: dec("1"), Type: model.TransactionTypeExpense, FromAccountID: f.bank, CategoryID: f.food})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateParams{Date: date(2025, 2, 1), Amount: dec("2"), Type: model.TransactionTypeExpense, FromAccountID: f.cash, CategoryID: f.food})
	require.NoError(t, err)

	txns, err := f.svc.List(ctx, store.TransactionFilter{AccountID: f.cash})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Amount.Equal(dec("2")))
}
