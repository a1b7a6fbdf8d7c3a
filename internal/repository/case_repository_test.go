package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseRepositoryFindByID(t *testing.T) {
	db, mock := newEventRepoMock(t)
	repo := NewCaseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "case_number", "court_name", "client_name", "client_email", "created_at", "updated_at"}).
		AddRow("case-1", "user-1", "Doe v. Roe", "HC-12/2024", "High Court", "Jane Doe", "jane@example.com", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM cases WHERE id = $1")).WithArgs("case-1").WillReturnRows(rows)

	c, err := repo.FindByID(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", c.ClientEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}
