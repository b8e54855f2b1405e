package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/eazylink/calltrust-server/internal/errs"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var reputationCols = []string{
	"user_id", "total_calls", "call_rejections", "user_reports",
	"blocks", "reputation_score", "is_flagged", "created_at", "updated_at",
}

func TestReputationRepo_RecordCall_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReputationRepo(db)

	mock.ExpectExec(`INSERT INTO reputation_records .+ ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(1), 100).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.RecordCall(context.Background(), 1, 100))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReputationRepo_ApplyReport_ReturnsUpdatedRecord(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReputationRepo(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO reputation_records .+ ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(2), 100, 5, 10, 50).
		WillReturnRows(pgxmock.NewRows(reputationCols).
			AddRow(int64(2), 3, 0, 5, 0, 10, true, now, now))

	rec, err := r.ApplyReport(context.Background(), 2, 100, 5, 10, 50)
	require.NoError(t, err)
	require.Equal(t, 5, rec.UserReports)
	require.Equal(t, 10, rec.ReputationScore)
	require.True(t, rec.IsFlagged)
}

func TestReputationRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewReputationRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM reputation_records WHERE user_id`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), 9)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
