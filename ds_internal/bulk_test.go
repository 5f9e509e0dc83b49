package ds_internal

import (
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureArg matches any string argument and records it.
type captureArg struct{ v *string }

func (c captureArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	*c.v = s
	return ok
}

func TestQuoteTable(t *testing.T) {
	q, err := quoteTable("people")
	require.NoError(t, err)
	assert.Equal(t, `"people"`, q)

	q, err = quoteTable("public.people")
	require.NoError(t, err)
	assert.Equal(t, `"public"."people"`, q)

	for _, bad := range []string{"", "a.b.c", "people;drop", "1abc", `pe"ople`, "public."} {
		_, err := quoteTable(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestBulkTokenize(t *testing.T) {
	s, _ := newTestServer(t, nil)
	src, mock, err := sqlmock.New()
	require.NoError(t, err)
	s.openSource = func(string) (*sql.DB, error) { return src, nil }

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ctid::text AS ctid, * FROM "public"."people"`)).
		WillReturnRows(sqlmock.NewRows([]string{"ctid", "id", "note", "extra"}).
			AddRow("(0,1)", "A1", "has A1", nil).
			AddRow("(0,2)", nil, "plain", "zz").
			AddRow("(0,3)", "B2", nil, "A1"))

	var id1, note1, id3, extra3 string
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "public"."people" SET "id" = $1, "note" = $2 WHERE ctid = $3::tid`)).
		WithArgs(captureArg{&id1}, captureArg{&note1}, "(0,1)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "public"."people" SET "id" = $1, "extra" = $2 WHERE ctid = $3::tid`)).
		WithArgs(captureArg{&id3}, captureArg{&extra3}, "(0,3)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	res, err := s.BulkTokenize(t.Context(), "postgres://src", "public.people", "id")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.UpdatedRows)
	assert.Equal(t, 3, res.UniqueValues)

	assert.Len(t, id1, 2)
	assert.Equal(t, "has "+id1, note1)
	assert.Equal(t, id1, extra3)
	assert.Len(t, id3, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkTokenize_RejectsIdentifiers(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.openSource = func(string) (*sql.DB, error) {
		t.Fatal("source must not be opened")
		return nil, nil
	}

	rec := do(t, s, "POST", "/bulk-tokenize",
		[]byte(`{"src_dsn":"postgres://x","src_table":"people; DROP TABLE x","column":"id"}`), "application/json")
	assert.Equal(t, 400, rec.Code)

	rec = do(t, s, "POST", "/bulk-tokenize",
		[]byte(`{"src_dsn":"postgres://x","src_table":"people","column":"id-1"}`), "application/json")
	assert.Equal(t, 400, rec.Code)

	rec = do(t, s, "POST", "/bulk-tokenize", []byte(`{"src_table":"people"}`), "application/json")
	assert.Equal(t, 400, rec.Code)
}
