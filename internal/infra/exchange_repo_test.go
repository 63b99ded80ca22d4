package infra

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/voice_chat/internal/ports"
)

var exchangeColumns = []string{
	"id", "session_id", "prompt", "completion", "total_tokens", "evicted", "flagged", "audio_url", "created_at",
}

func TestExchangeRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO exchanges").
		WithArgs("s1", "halo", "hai juga", 42, 2, false, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := NewExchangeRepo(db).Create(context.Background(), ports.ExchangeRecord{
		SessionID:   "s1",
		Prompt:      "halo",
		Completion:  "hai juga",
		TotalTokens: 42,
		Evicted:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepoListBySessionChronological(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	url := "https://s3.local/audio/s1/a.wav"
	mock.ExpectQuery("FROM exchanges").
		WithArgs("s1", 3).
		WillReturnRows(sqlmock.NewRows(exchangeColumns).
			AddRow(3, "s1", "tiga", "c3", 30, 0, false, nil, base.Add(2*time.Minute)).
			AddRow(2, "s1", "dua", "c2", 20, 0, true, nil, base.Add(time.Minute)).
			AddRow(1, "s1", "satu", "c1", 10, 0, false, url, base))

	records, err := NewExchangeRepo(db).ListBySession(context.Background(), "s1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []int64{1, 2, 3}, []int64{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, "satu", records[0].Prompt)
	require.NotNil(t, records[0].AudioURL)
	assert.Equal(t, url, *records[0].AudioURL)
	assert.Nil(t, records[2].AudioURL)
	assert.True(t, records[1].Flagged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRepoListBySessionLimits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM exchanges").
		WithArgs("s1", 50).
		WillReturnRows(sqlmock.NewRows(exchangeColumns))
	mock.ExpectQuery("FROM exchanges").
		WithArgs("s1", maxListLimit).
		WillReturnRows(sqlmock.NewRows(exchangeColumns))

	repo := NewExchangeRepo(db)

	records, err := repo.ListBySession(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	_, err = repo.ListBySession(context.Background(), "s1", 1_000_000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
