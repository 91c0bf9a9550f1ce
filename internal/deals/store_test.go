package deals

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ajitpratap0/fxengine/internal/fxerrors"
	"github.com/ajitpratap0/fxengine/internal/reference"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

var dealColumns = []string{"deal_id", "pair", "side", "buy_rate", "sell_rate", "amount", "min_amount",
	"remaining_amount", "valid_from", "valid_until", "status", "created_by", "audit", "utilisations"}

func dealRow(d *Deal) []interface{} {
	audit, _ := json.Marshal(d.Audit)
	util, _ := json.Marshal(d.Utilisations)
	return []interface{}{d.DealID, d.Pair, string(d.Side), d.BuyRate, d.SellRate, d.Amount, d.MinAmount,
		d.RemainingAmount, d.ValidFrom, d.ValidUntil, string(d.Status), d.CreatedBy, audit, util}
}

func sampleDeal(now time.Time) *Deal {
	return &Deal{
		DealID:          "deal-1",
		Pair:            "USDINR",
		Side:            reference.SideSell,
		BuyRate:         84.40,
		SellRate:        84.65,
		Amount:          200000,
		MinAmount:       10000,
		RemainingAmount: 200000,
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.Add(24 * time.Hour),
		Status:          StatusActive,
		CreatedBy:       "trader-1",
	}
}

func TestCreate_AssignsIDAndPersists(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO deals").
		WithArgs(pgxmock.AnyArg(), "USDINR", "SELL", 84.40, 84.65, 200000.0, 10000.0,
			200000.0, pgxmock.AnyArg(), pgxmock.AnyArg(), "DRAFT", "trader-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	d := &Deal{
		Pair: "USDINR", Side: reference.SideSell, BuyRate: 84.40, SellRate: 84.65,
		Amount: 200000, MinAmount: 10000, ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
		CreatedBy: "trader-1",
	}
	created, err := store.Create(context.Background(), d, now)
	require.NoError(t, err)
	assert.NotEmpty(t, created.DealID)
	assert.Equal(t, StatusDraft, created.Status)
	assert.Len(t, created.Audit, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RejectsInvalidDeal(t *testing.T) {
	store, _ := newMockStore(t)
	now := time.Now()
	d := &Deal{Pair: "USDINR", Amount: 100, MinAmount: 200, ValidFrom: now, ValidUntil: now.Add(time.Hour)}
	_, err := store.Create(context.Background(), d, now)
	require.Error(t, err)
	var ve *fxerrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGet_LazyExpiresPastDeal(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.ValidUntil = now.Add(-time.Minute) // already past

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)
	mock.ExpectExec("UPDATE deals SET status").
		WithArgs("EXPIRED", pgxmock.AnyArg(), d.DealID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	got, err := store.Get(context.Background(), d.DealID, now)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "missing", time.Now())
	require.Error(t, err)
	var dsce *fxerrors.DealStateConflictError
	assert.ErrorAs(t, err, &dsce)
}

func TestSubmit_HappyPath(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.Status = StatusDraft
	d.ValidFrom = now.Add(-time.Minute)

	rows1 := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows1)
	mock.ExpectExec("UPDATE deals SET status").
		WithArgs("PENDING_APPROVAL", pgxmock.AnyArg(), d.DealID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	submitted, err := store.Submit(context.Background(), d.DealID, "trader-1", now)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, submitted.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprove_RejectsBeforeValidFrom(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.Status = StatusPendingApproval
	d.ValidFrom = now.Add(time.Hour) // not yet valid

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)

	_, err := store.Approve(context.Background(), d.DealID, "ops-1", now)
	require.Error(t, err)
	var dsce *fxerrors.DealStateConflictError
	assert.ErrorAs(t, err, &dsce)
}

func TestTransition_RejectsIllegalEdge(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.Status = StatusRejected // terminal

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)

	_, err := store.Approve(context.Background(), d.DealID, "ops-1", now)
	require.Error(t, err)
	assert.ErrorIs(t, err, fxerrors.ErrDealStateConflict)
}

func TestUtilise_ReducesRemainingAmount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)
	mock.ExpectExec("UPDATE deals SET remaining_amount").
		WithArgs(100000.0, "ACTIVE", pgxmock.AnyArg(), pgxmock.AnyArg(), d.DealID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := store.Utilise(context.Background(), d.DealID, 100000, "cust-1", now)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, updated.RemainingAmount)
	assert.Len(t, updated.Utilisations, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUtilise_TripsFullyUtilizedWhenBelowMin(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.RemainingAmount = 15000
	d.MinAmount = 10000

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)
	mock.ExpectExec("UPDATE deals SET remaining_amount").
		WithArgs(8000.0, "FULLY_UTILIZED", pgxmock.AnyArg(), pgxmock.AnyArg(), d.DealID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := store.Utilise(context.Background(), d.DealID, 7000, "cust-1", now)
	require.NoError(t, err)
	assert.Equal(t, StatusFullyUtilized, updated.Status)
}

func TestUtilise_InsufficientBalance(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.RemainingAmount = 50000

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals WHERE deal_id").WithArgs(d.DealID).WillReturnRows(rows)

	_, err := store.Utilise(context.Background(), d.DealID, 100000, "cust-1", now)
	require.Error(t, err)
	var ibe *fxerrors.InsufficientDealBalanceError
	assert.ErrorAs(t, err, &ibe)
}

func TestBestRate_PrefersDealOverWorseTreasuryRate(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now) // sell_rate 84.65

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals").WillReturnRows(rows)

	result, err := store.BestRate(context.Background(), "USDINR", reference.SideSell, 100000, now, 84.55)
	require.NoError(t, err)
	assert.Equal(t, SourceDeal, result.Source)
	assert.Equal(t, d.DealID, result.DealID)
	assert.Equal(t, 84.65, result.Rate)
	assert.Greater(t, result.SavingsBps, 0.0)
}

func TestBestRate_FallsBackToTreasuryWhenNoDealBeats(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now) // sell_rate 84.65

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals").WillReturnRows(rows)

	result, err := store.BestRate(context.Background(), "USDINR", reference.SideSell, 100000, now, 84.80)
	require.NoError(t, err)
	assert.Equal(t, SourceTreasury, result.Source)
	assert.Equal(t, 0.0, result.SavingsBps)
}

func TestBestRate_ExcludesDealsBelowMinAmount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	d := sampleDeal(now)
	d.MinAmount = 150000

	rows := pgxmock.NewRows(dealColumns).AddRow(dealRow(d)...)
	mock.ExpectQuery("(?s)SELECT.*FROM deals").WillReturnRows(rows)

	result, err := store.BestRate(context.Background(), "USDINR", reference.SideSell, 50000, now, 84.55)
	require.NoError(t, err)
	assert.Equal(t, SourceTreasury, result.Source)
}
