package ds_internal

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/models"
)

const apiPrefix = "/api/dataset-tokenization"

func testConfig() *common.Config {
	return &common.Config{
		MaxUploadBytes: 1 << 20,
		Workers:        2,
		Generator:      common.GeneratorConfig{Mode: common.ModeRandom, Seed: 7, HasSeed: true},
	}
}

func newTestServer(t *testing.T, cache *Cache) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewServer(models.NewStore(db), cache, testConfig()), mock
}

func do(t *testing.T, s *Server, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, apiPrefix+path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func datasetRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "columns", "rows", "row_count", "version", "created_at", "updated_at"}).
		AddRow(int64(5), "people", []byte(`["id","name"]`),
			[]byte(`[{"id":"A1","name":"Ann"},{"id":"B2","name":"Bob"},{"id":"A1","name":"Anil"}]`),
			int64(3), int64(3), now, now)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fine")
}

func TestStatelessTokenize(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := []byte(`{"columns":["id","note"],"rows":[{"id":"AB12","note":"see AB12"},{"id":"AB12","note":"x"},{"id":"","note":""}],"column":"id"}`)
	rec := do(t, s, http.MethodPost, "/tokenize", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 3)
	tok := resp.Rows[0]["id"]
	assert.Len(t, tok, 4)
	assert.Equal(t, tok, resp.Rows[1]["id"])
	assert.Equal(t, "see "+tok, resp.Rows[0]["note"])
	assert.Equal(t, "", resp.Rows[2]["id"])
	assert.Equal(t, 2, resp.UniqueValues)
	assert.Equal(t, common.ModeRandom, resp.Mode)
}

func TestStatelessTokenize_Errors(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/tokenize", []byte(`{"columns":["id"],"rows":[],"column":"nope"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/tokenize", []byte(`{"columns":["id","b"],"rows":[{"id":"1"}],"column":"id"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed row")

	rec = do(t, s, http.MethodPost, "/tokenize", []byte(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDataset_RawCSV(t *testing.T) {
	s, mock := newTestServer(t, nil)
	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO datasets`).
		WithArgs("people", []byte(`["id","name"]`), sqlmock.AnyArg(), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).AddRow(int64(5), int64(1), now, now))

	rec := do(t, s, http.MethodPost, "/datasets?name=people", []byte("id,name\n1,Ann\n2,Bob\n"), "text/csv")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, 2, resp.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadDataset_Multipart(t *testing.T) {
	s, mock := newTestServer(t, nil)
	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO datasets`).
		WithArgs("customers", sqlmock.AnyArg(), sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).AddRow(int64(6), int64(1), now, now))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "customers.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("email\na@example.com\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, s, http.MethodPost, "/datasets", buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadDataset_Rejects(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/datasets", []byte("a,a\n1,2\n"), "text/csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/datasets", nil, "text/csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.cfg.MaxUploadBytes = 16
	rec = do(t, s, http.MethodPost, "/datasets", []byte("id,name\n1,Ann\n2,Bob\n3,Cy\n"), "text/csv")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetDataset_NotFound(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(42)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := do(t, s, http.MethodGet, "/datasets/42", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewRows(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))

	rec := do(t, s, http.MethodGet, "/datasets/5/rows?filter.name=an&sort=name&order=desc&per_page=20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		TotalRows int `json:"total_rows"`
		PerPage   int `json:"per_page"`
		Rows      []struct {
			Index  int               `json:"index"`
			Values map[string]string `json:"values"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalRows)
	assert.Equal(t, 20, page.PerPage)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Ann", page.Rows[0].Values["name"])
	assert.Equal(t, 2, page.Rows[1].Index)
}

func TestRowDetail_OutOfRange(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))

	rec := do(t, s, http.MethodGet, "/datasets/5/rows/9", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenizeDataset(t *testing.T) {
	s, mock := newTestServer(t, nil)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(now))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE datasets`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 3, int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
	mock.ExpectQuery(`INSERT INTO tokenization_runs`).
		WithArgs(sqlmock.AnyArg(), int64(5), "id", common.ModeRandom, 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	rec := do(t, s, http.MethodPost, "/datasets/5/tokenize", []byte(`{"column":"id"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenizeDatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(4), resp.Version)
	assert.Equal(t, 2, resp.Run.UniqueValues)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenizeDataset_Conflict(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE datasets`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	rec := do(t, s, http.MethodPost, "/datasets/5/tokenize", []byte(`{"column":"id"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenizeDataset_InvalidColumn(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))

	rec := do(t, s, http.MethodPost, "/datasets/5/tokenize", []byte(`{"column":"ssn"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid column")
}

func TestExport(t *testing.T) {
	s, mock := newTestServer(t, nil)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))

	rec := do(t, s, http.MethodGet, "/datasets/5/export?format=json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="people_tokenized.json"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[\n  {\n    \"id\": \"A1\""))

	rec = do(t, s, http.MethodGet, "/datasets/5/export?format=xml", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetect(t *testing.T) {
	s, mock := newTestServer(t, nil)
	now := time.Now()
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "columns", "rows", "row_count", "version", "created_at", "updated_at"}).
			AddRow(int64(5), "p", []byte(`["pan","note"]`),
				[]byte(`[{"pan":"ABCDE1234F","note":"hi"},{"pan":"abcde1234f","note":"yo"}]`), int64(2), int64(1), now, now))

	rec := do(t, s, http.MethodGet, "/datasets/5/detect", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pii_type":"PAN"`)
}

func TestGetDataset_ServedFromCache(t *testing.T) {
	cache := newTestCache(t)
	s, mock := newTestServer(t, cache)
	mock.ExpectQuery(`FROM datasets\s+WHERE`).WithArgs(int64(5)).WillReturnRows(datasetRows(time.Now()))

	rec := do(t, s, http.MethodGet, "/datasets/5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/datasets/5/rows", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
