package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueVariants(t *testing.T) {
	assert.Equal(t, KindNull, Null().Kind())
	assert.True(t, Null().IsNull())
	assert.True(t, Value{}.IsNull(), "zero value is null")

	i, err := Integer(42).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := Real(42.125).Float64()
	require.NoError(t, err)
	assert.Equal(t, 42.125, f)

	s, err := Text("O'Reilly & Sons (R&D)").Text()
	require.NoError(t, err)
	assert.Equal(t, "O'Reilly & Sons (R&D)", s)

	b, err := Blob([]byte{0x1, 0x2}).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1, 0x2}, b)
}

func TestValueBoolEncoding(t *testing.T) {
	i, err := Bool(true).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), i)

	i, err = Bool(false).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(0), i)

	v, err := Integer(1).Bool()
	require.NoError(t, err)
	assert.True(t, v)
}

func TestValueKindMismatch(t *testing.T) {
	_, err := Text("x").Int64()
	assert.Error(t, err)
	_, err = Integer(1).Text()
	assert.Error(t, err)
	_, err = Null().Bytes()
	assert.Error(t, err)

	// Integer converts losslessly to float, not the reverse.
	f, err := Integer(3).Float64()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
	_, err = Real(3.5).Int64()
	assert.Error(t, err)
}

func TestValueNullableConstructors(t *testing.T) {
	assert.True(t, NullableText(nil).IsNull())
	assert.True(t, NullableInteger(nil).IsNull())
	assert.True(t, NullableReal(nil).IsNull())
	assert.True(t, NullableBool(nil).IsNull())

	s := "hi"
	v, err := NullableText(&s).Text()
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Integer(1).Equal(Integer(1)))
	assert.False(t, Integer(1).Equal(Integer(2)))
	assert.False(t, Integer(1).Equal(Real(1)))
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Blob([]byte{1}).Equal(Blob([]byte{1})))
	assert.False(t, Blob([]byte{1}).Equal(Blob([]byte{2})))
	assert.True(t, Text("你好").Equal(Text("你好")))
}

func TestRowsOf(t *testing.T) {
	rows := RowsOf(
		NewRow(Integer(1), Text("a")),
		NewRow(Integer(2), Text("b")),
	)
	row, err := rows.Next(t.Context())
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Len())

	v, err := row.Get(1)
	require.NoError(t, err)
	assert.True(t, v.Equal(Text("a")))

	_, err = row.Get(2)
	assert.Error(t, err, "index out of range")

	row, err = rows.Next(t.Context())
	require.NoError(t, err)
	require.NotNil(t, row)

	row, err = rows.Next(t.Context())
	require.NoError(t, err)
	assert.Nil(t, row, "exhausted cursor returns nil row")
	require.NoError(t, rows.Close())
}
