package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("\xEF\xBB\xBFname,price\nMug,12"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, "name", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		_, err := NewParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Non UTF-8 input is rejected", func(t *testing.T) {
		_, err := NewParser(strings.NewReader("name\n\xff\xfe"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Multi-byte rune cut by the sniff window is accepted", func(t *testing.T) {
		// pad so the two-byte "é" straddles the sniff boundary
		content := strings.Repeat("a", encodingSniffSize-1) + "é"
		_, err := NewParser(strings.NewReader(content))
		assert.NoError(t, err)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name;price\nMug;12"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"name", "price"}, parser.Headers())
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("Names are normalized", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("  Name , Compare At Price,low-stock-threshold\nMug,20,3"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, []string{"name", "compare_at_price", "low_stock_threshold"}, parser.Headers())
		assert.True(t, parser.HasHeader("compare_at_price"))
	})

	t.Run("Missing required headers are reported", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name,quantity\nMug,3"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.Equal(t, []string{"price"}, parser.MissingHeaders([]string{"name", "price", "quantity"}))
	})

	t.Run("Blank header row", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader(" , ,\nMug,3,1"))
		require.NoError(t, err)
		assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
	})
}

func TestReadRow(t *testing.T) {
	t.Run("Rows carry file line numbers", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name,price\nMug,12\nBowl,18"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 2, row.LineNumber)
		assert.Equal(t, "Mug", row.Get("name"))

		row, err = parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 3, row.LineNumber)
		assert.Equal(t, "18", row.Get("price"))

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("Short rows fill missing columns with blanks", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name,price,sku\nMug"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "", row.Get("sku"))
	})

	t.Run("Quoted fields keep delimiters and newlines", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name,description\n\"Mug, large\",\"Glazed\nby hand\""))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Mug, large", row.Get("name"))
		assert.Equal(t, "Glazed\nby hand", row.Get("description"))
	})
}

func TestReadAllRows(t *testing.T) {
	t.Run("Skips empty rows", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name,price\nMug,12\n,\nBowl,18\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		rows, err := parser.ReadAllRows()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 4, rows[1].LineNumber)
		assert.Equal(t, 2, parser.TotalRows())
	})

	t.Run("Stops at the row cap", func(t *testing.T) {
		parser, err := NewParser(strings.NewReader("name\nA\nB\nC"), WithMaxRows(2))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		_, err = parser.ReadAllRows()
		assert.ErrorIs(t, err, ErrTooManyRows)
	})
}
