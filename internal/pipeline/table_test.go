package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	input := "Num_Acc;grav\n" +
		"202200000001;2\n" +
		"202200000002;4;extra-field\n" + // wrong column count: skipped
		"202200000003;1\n"

	table, err := ReadTable(strings.NewReader(input), "users")
	require.NoError(t, err)

	assert.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Skipped)
	assert.Equal(t, "202200000003", table.Get(table.Rows[1], "Num_Acc"))
	assert.Equal(t, "1", table.Get(table.Rows[1], "grav"))
}

func TestReadTable_BOMHeader(t *testing.T) {
	input := "\uFEFFNum_Acc;surf\n202200000001;2\n"

	table, err := ReadTable(strings.NewReader(input), "locations")
	require.NoError(t, err)

	assert.True(t, table.Has("Num_Acc"))
	assert.Equal(t, "2", table.Get(table.Rows[0], "surf"))
}

func TestTable_Require(t *testing.T) {
	table, err := ReadTable(strings.NewReader("Num_Acc;grav\n"), "users")
	require.NoError(t, err)

	require.NoError(t, table.Require("Num_Acc", "grav"))

	err = table.Require("Num_Acc", "an_nais")
	require.Error(t, err)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "users", se.Dataset)
	assert.Equal(t, "an_nais", se.Column)
	assert.Contains(t, err.Error(), "an_nais")
}

func TestTable_GetUnknownColumn(t *testing.T) {
	table, err := ReadTable(strings.NewReader("Num_Acc;grav\n202200000001;2\n"), "users")
	require.NoError(t, err)

	assert.Equal(t, "", table.Get(table.Rows[0], "no_such_column"))
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable("/does/not/exist.csv", "characteristics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "characteristics")
}
