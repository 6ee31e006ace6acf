package wkrd

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiRangeReader(t *testing.T) {
	src := bytes.NewReader([]byte("0123456789"))
	m := NewMultiRangeReader(src, []Section{{Offset: 2, Length: 3}, {Offset: 5, Length: 0}, {Offset: 7, Length: 2}})
	assert.Equal(t, int64(5), m.Size())
	assert.Equal(t, []int64{3}, m.Boundaries())

	all, err := io.ReadAll(m)
	require.NoError(t, err)
	assert.Equal(t, "23478", string(all))

	p := make([]byte, 2)
	n, err := m.ReadAt(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "47", string(p))

	_, err = m.ReadAt(p, 5)
	assert.Equal(t, io.EOF, err)
	n, err = m.ReadAt(make([]byte, 4), 3)
	assert.Equal(t, 2, n)
	assert.Equal(t, io.EOF, err)

	pos, err := m.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)
	rest, err := io.ReadAll(m)
	require.NoError(t, err)
	assert.Equal(t, "8", string(rest))

	_, err = m.Seek(-10, io.SeekCurrent)
	assert.Error(t, err)
}

func TestSingleSectionHasNoBoundaries(t *testing.T) {
	m := NewMultiRangeReader(bytes.NewReader([]byte("abc")), []Section{{Offset: 0, Length: 3}})
	assert.Nil(t, m.Boundaries())
}

func TestOpenNativeStream(t *testing.T) {
	_, err := OpenNativeStream(bytes.NewReader(wksSample()), wksDialect)
	assert.Equal(t, ErrNoStream, errors.Cause(err))

	_, err = OpenNativeStream(bytes.NewReader(qproSample()), qproDialect)
	assert.Error(t, err)
}

func TestCompoundDocumentIsRejected(t *testing.T) {
	data := append(append([]byte(nil), OLESignature...), make([]byte, 504)...)
	_, err := Parse(bytes.NewReader(data), &Options{Dialect: qproDialect})
	require.Error(t, err)
	assert.True(t, IsHeaderError(err))
	assert.True(t, IsCompoundDocument(data))
	assert.False(t, IsCompoundDocument(qproSample()))
}
