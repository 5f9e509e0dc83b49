package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_PaginationDefaults(t *testing.T) {
	records := make([][]string, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, []string{fmt.Sprint(i)})
	}
	tbl := buildTable(t, []string{"n"}, records...)

	p, err := View(tbl, ViewOptions{PerPage: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 25, p.TotalRows)
	assert.Equal(t, 3, p.TotalPages)
	assert.Len(t, p.Rows, 10)

	p, err = View(tbl, ViewOptions{Page: 3, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, p.Rows, 5)
	assert.Equal(t, 20, p.Rows[0].Index)

	p, err = View(tbl, ViewOptions{Page: 9, PerPage: 20})
	require.NoError(t, err)
	assert.Empty(t, p.Rows)
}

func TestView_FilterAndSort(t *testing.T) {
	tbl := buildTable(t, []string{"name", "city"},
		[]string{"Ann", "Pune"},
		[]string{"bob", "Mumbai"},
		[]string{"Anil", "PUNE"},
		[]string{"Cy", "Delhi"},
	)
	p, err := View(tbl, ViewOptions{
		Filters:    map[string]string{"city": "pun", "name": ""},
		SortColumn: "name",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, "Ann", p.Rows[0].Values["name"])
	assert.Equal(t, 0, p.Rows[0].Index)
	assert.Equal(t, "Anil", p.Rows[1].Values["name"])
	assert.Equal(t, 2, p.Rows[1].Index)
}

func TestView_UnknownColumns(t *testing.T) {
	tbl := buildTable(t, []string{"a"}, []string{"1"})
	_, err := View(tbl, ViewOptions{Filters: map[string]string{"b": "x"}})
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = View(tbl, ViewOptions{SortColumn: "b"})
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestRowDetail(t *testing.T) {
	tbl := buildTable(t, []string{"a"}, []string{"1"})
	row, err := RowDetail(tbl, 0)
	require.NoError(t, err)
	row["a"] = "changed"
	assert.Equal(t, "1", tbl.Rows[0]["a"])

	_, err = RowDetail(tbl, 1)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = RowDetail(tbl, -1)
	assert.ErrorIs(t, err, ErrRowOutOfRange)
}

func TestView_HugePageIsEmpty(t *testing.T) {
	tbl := buildTable(t, []string{"a"}, []string{"1"})
	for _, page := range []int{2, math.MaxInt64 / 10, math.MaxInt64} {
		var p *Page
		var err error
		require.NotPanics(t, func() {
			p, err = View(tbl, ViewOptions{Page: page, PerPage: 100})
		})
		require.NoError(t, err)
		assert.Empty(t, p.Rows, "page %d", page)
		assert.Equal(t, 1, p.TotalRows)
	}
}
