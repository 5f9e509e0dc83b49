package engine

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV_RoundTrip(t *testing.T) {
	tbl := buildTable(t, []string{"id", "note"},
		[]string{"1", "a, \"quoted\" note"},
		[]string{"2", ""},
	)
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, tbl, "CSV"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}

func TestExportJSON(t *testing.T) {
	tbl := buildTable(t, []string{"z", "a"}, []string{"1", "x"})
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, tbl, FormatJSON))

	want := "[\n  {\n    \"z\": \"1\",\n    \"a\": \"x\"\n  }\n]\n"
	assert.Equal(t, want, buf.String())

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []map[string]string{{"z": "1", "a": "x"}}, decoded)
}

func TestExportJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, buildTable(t, []string{"a"})))
	assert.Equal(t, "[]\n", buf.String())
}

func TestExport_UnsupportedFormat(t *testing.T) {
	err := Export(&bytes.Buffer{}, buildTable(t, []string{"a"}), "xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, strings.HasPrefix(ContentType(FormatJSON), "application/json"))
	assert.True(t, strings.HasPrefix(ContentType(FormatCSV), "text/csv"))
}

func TestExportJSON_KeepsHTMLCharacters(t *testing.T) {
	tbl := buildTable(t, []string{"a<b>"}, []string{"x & <y>"})
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, tbl))
	assert.Equal(t, "[\n  {\n    \"a<b>\": \"x & <y>\"\n  }\n]\n", buf.String())
}
