package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/constructum-ci/constructum/pkg/db"
	"github.com/constructum-ci/constructum/pkg/db/postgres"
	kpool "github.com/constructum-ci/constructum/pkg/db/postgres/pool"
	"github.com/constructum-ci/constructum/pkg/domain"
)

type fakeRow struct {
	scan func(dest ...interface{}) error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	return r.scan(dest...)
}

// fakeTx serves QueryRow from a scripted row and records every Exec.
type fakeTx struct {
	row fakeRow

	execs      []string
	execArgs   [][]interface{}
	committed  bool
	rolledBack bool
}

var _ kpool.Tx = &fakeTx{}

func (tx *fakeTx) Begin(context.Context) (kpool.Tx, error) {
	panic(errors.New("it should not be called"))
}

func (tx *fakeTx) Exec(_ context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	tx.execArgs = append(tx.execArgs, arguments)
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (tx *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	panic(errors.New("it should not be called"))
}

func (tx *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return tx.row
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakePool struct {
	tx *fakeTx
}

var _ kpool.Pool = &fakePool{}

func (p *fakePool) Begin(context.Context) (kpool.Tx, error) {
	return p.tx, nil
}

func (p *fakePool) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	panic(errors.New("it should not be called"))
}

func (p *fakePool) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	panic(errors.New("it should not be called"))
}

func (p *fakePool) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	panic(errors.New("it should not be called"))
}

func (p *fakePool) Ping(context.Context) error { return nil }
func (p *fakePool) Close()                     {}

func stepRowWithStatus(status string) fakeRow {
	return fakeRow{scan: func(dest ...interface{}) error {
		*(dest[0].(*string)) = status
		return nil
	}}
}

func TestStepSetStatus(t *testing.T) {
	t.Run("it writes a legal transition", func(t *testing.T) {
		tx := &fakeTx{row: stepRowWithStatus(domain.StepInProgress.String())}
		testee := postgres.NewStepStore(&fakePool{tx: tx})

		stepID := uuid.New()
		if err := testee.SetStatus(
			context.Background(), stepID, domain.StepSuccess,
		); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(tx.execs) != 1 {
			t.Fatalf("expected a single update, got %d", len(tx.execs))
		}
		if got := tx.execArgs[0][0]; got != domain.StepSuccess.String() {
			t.Errorf("unexpected status written: %v", got)
		}
		if !tx.committed {
			t.Error("the transaction should be committed")
		}
	})

	t.Run("it refuses to rewrite a terminal step", func(t *testing.T) {
		for name, current := range map[string]domain.StepStatus{
			"out of Success": domain.StepSuccess,
			"out of Fail":    domain.StepFail,
		} {
			t.Run(name, func(t *testing.T) {
				tx := &fakeTx{row: stepRowWithStatus(current.String())}
				testee := postgres.NewStepStore(&fakePool{tx: tx})

				err := testee.SetStatus(
					context.Background(), uuid.New(), domain.StepInProgress,
				)
				if !errors.Is(err, db.ErrIllegalTransition) {
					t.Fatalf("expected ErrIllegalTransition, got %v", err)
				}

				if len(tx.execs) != 0 {
					t.Errorf("nothing should be written, got %v", tx.execs)
				}
				if tx.committed || !tx.rolledBack {
					t.Error("the transaction should be rolled back")
				}
			})
		}
	})

	t.Run("it refuses to skip the InProgress state", func(t *testing.T) {
		tx := &fakeTx{row: stepRowWithStatus(domain.NotStarted.String())}
		testee := postgres.NewStepStore(&fakePool{tx: tx})

		err := testee.SetStatus(context.Background(), uuid.New(), domain.StepSuccess)
		if !errors.Is(err, db.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
		if len(tx.execs) != 0 {
			t.Errorf("nothing should be written, got %v", tx.execs)
		}
	})

	t.Run("it reports a missing step", func(t *testing.T) {
		tx := &fakeTx{row: fakeRow{scan: func(...interface{}) error {
			return pgx.ErrNoRows
		}}}
		testee := postgres.NewStepStore(&fakePool{tx: tx})

		err := testee.SetStatus(context.Background(), uuid.New(), domain.StepInProgress)
		if !errors.Is(err, db.ErrMissing) {
			t.Fatalf("expected ErrMissing, got %v", err)
		}
	})
}
