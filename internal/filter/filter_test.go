package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchDefaultIgnoreCase(t *testing.T) {
	n, err := Parse([]byte(`{"type":"match","string":"ERROR"}`))
	require.NoError(t, err)
	assert.True(t, n.Match([]byte("an error occurred")))
	assert.True(t, n.Match([]byte("an ERROR occurred")))
}

func TestMatchCaseSensitive(t *testing.T) {
	n, err := Parse([]byte(`{"type":"match","string":"ERROR","ignorecase":false}`))
	require.NoError(t, err)
	assert.False(t, n.Match([]byte("an error occurred")))
	assert.True(t, n.Match([]byte("an ERROR occurred")))
}

func TestRegexDefaultIgnoreCase(t *testing.T) {
	n, err := Parse([]byte(`{"type":"regex","pattern":"^\\d+ error"}`))
	require.NoError(t, err)
	assert.True(t, n.Match([]byte("42 ERROR happened")))
}

func TestNot(t *testing.T) {
	n, err := Parse([]byte(`{"type":"not","arg":{"type":"match","string":"ok"}}`))
	require.NoError(t, err)
	assert.False(t, n.Match([]byte("status ok")))
	assert.True(t, n.Match([]byte("status fail")))
}

func TestAndOr(t *testing.T) {
	n, err := Parse([]byte(`{
		"type":"and",
		"args":[
			{"type":"match","string":"GET"},
			{"type":"or","args":[
				{"type":"match","string":"200"},
				{"type":"match","string":"304"}
			]}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, n.Match([]byte("GET /foo 200 ok")))
	assert.True(t, n.Match([]byte("GET /foo 304 ok")))
	assert.False(t, n.Match([]byte("GET /foo 500 ok")))
	assert.False(t, n.Match([]byte("POST /foo 200 ok")))
}

func TestUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"xor"}`))
	assert.Error(t, err)
}

func TestAndRequiresArgs(t *testing.T) {
	_, err := Parse([]byte(`{"type":"and"}`))
	assert.Error(t, err)
}

func TestInvalidRegex(t *testing.T) {
	_, err := Parse([]byte(`{"type":"regex","pattern":"("}`))
	assert.Error(t, err)
}
