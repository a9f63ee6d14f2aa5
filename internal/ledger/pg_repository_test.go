package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	return NewPgRepository(mock), mock
}

func TestApplyFundingWritesBothLegs(t *testing.T) {
	repo, mock := newMockRepo(t)

	patientID := uuid.New()
	doctorID := uuid.New()
	op := FundingOperation(patientID, doctorID)

	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), patientID, -AppointmentCost, TypeAppointmentDeduction, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(patientID, -AppointmentCost).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), doctorID, AppointmentCost, TypeAppointmentDeduction, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(doctorID, AppointmentCost).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Apply(context.Background(), nil, op); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyDebitBelowBalanceFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	patientID := uuid.New()
	doctorID := uuid.New()
	op := FundingOperation(patientID, doctorID)

	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), patientID, -AppointmentCost, TypeAppointmentDeduction, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Conditional update matches nothing: balance is 1, debit is 2.
	mock.ExpectExec("UPDATE accounts").
		WithArgs(patientID, -AppointmentCost).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT credits FROM accounts").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(1))

	err := repo.Apply(context.Background(), nil, op)
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyRejectsEmptyOperation(t *testing.T) {
	repo, _ := newMockRepo(t)

	if err := repo.Apply(context.Background(), nil, Operation{}); !errors.Is(err, ErrEmptyOperation) {
		t.Fatalf("expected ErrEmptyOperation, got %v", err)
	}
}

func TestAllocateOnceSkipsWhenMonthAndPlanMatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	accountID := uuid.New()
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	pkg := PlanStandard

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, account_id, amount, type, package_id, created_at").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "amount", "type", "package_id", "created_at"}).
			AddRow(uuid.New(), accountID, 10, TypeCreditPurchase, &pkg, now.AddDate(0, 0, -3)))
	mock.ExpectRollback()

	allocated, err := repo.AllocateOnce(context.Background(), accountID, 10, PlanStandard, now)
	if err != nil {
		t.Fatalf("AllocateOnce returned error: %v", err)
	}
	if allocated {
		t.Fatal("expected allocation to be skipped for the same month and plan")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocateOnceGrantsOnPlanChange(t *testing.T) {
	repo, mock := newMockRepo(t)

	accountID := uuid.New()
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	oldPkg := PlanStandard

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	// Same month but a different package id: mid-month upgrade tops up.
	mock.ExpectQuery("SELECT id, account_id, amount, type, package_id, created_at").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "amount", "type", "package_id", "created_at"}).
			AddRow(uuid.New(), accountID, 10, TypeCreditPurchase, &oldPkg, now.AddDate(0, 0, -3)))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), accountID, 24, TypeCreditPurchase, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(accountID, 24).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	allocated, err := repo.AllocateOnce(context.Background(), accountID, 24, PlanPremium, now)
	if err != nil {
		t.Fatalf("AllocateOnce returned error: %v", err)
	}
	if !allocated {
		t.Fatal("expected allocation on plan change")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocateOnceGrantsWhenNoHistory(t *testing.T) {
	repo, mock := newMockRepo(t)

	accountID := uuid.New()
	now := time.Date(2025, time.March, 1, 0, 5, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, account_id, amount, type, package_id, created_at").
		WithArgs(accountID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), accountID, 10, TypeCreditPurchase, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(accountID, 10).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	allocated, err := repo.AllocateOnce(context.Background(), accountID, 10, PlanStandard, now)
	if err != nil {
		t.Fatalf("AllocateOnce returned error: %v", err)
	}
	if !allocated {
		t.Fatal("expected first allocation to be granted")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocateOnceSerializationAbortRetriesAndSkips(t *testing.T) {
	repo, mock := newMockRepo(t)

	accountID := uuid.New()
	now := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	pkg := PlanStandard

	// First attempt races a concurrent allocation and aborts on commit.
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, account_id, amount, type, package_id, created_at").
		WithArgs(accountID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(pgxmock.AnyArg(), accountID, 10, TypeCreditPurchase, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(accountID, 10).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	// The retry finds the winner's grant for this month and skips.
	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.Serializable})
	mock.ExpectQuery("SELECT id, account_id, amount, type, package_id, created_at").
		WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "amount", "type", "package_id", "created_at"}).
			AddRow(uuid.New(), accountID, 10, TypeCreditPurchase, &pkg, now.Add(-time.Minute)))
	mock.ExpectRollback()

	allocated, err := repo.AllocateOnce(context.Background(), accountID, 10, PlanStandard, now)
	if err != nil {
		t.Fatalf("AllocateOnce returned error: %v", err)
	}
	if allocated {
		t.Fatal("expected retry to skip the already-granted allocation")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
