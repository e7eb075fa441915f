package capture

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchAndEval(t *testing.T, re, line, condSpec string) bool {
	t.Helper()
	r := regexp.MustCompile(re)
	idx := r.FindSubmatchIndex([]byte(line))
	require.NotNil(t, idx, "pattern must match fixture line")
	conds, err := ParseConditions(condSpec)
	require.NoError(t, err)
	return Eval(conds, []byte(line), idx, DefaultTimeFormat)
}

func TestParseConditionsRawCapture(t *testing.T) {
	conds, err := ParseConditions("$1=GET")
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, 0, conds[0].RawCaptureIndex)
	assert.Equal(t, CompareString, conds[0].Type)
	assert.Equal(t, OpEQ, conds[0].Op)
	assert.Equal(t, "GET", string(conds[0].RefValue))
}

func TestParseConditionsMultipleTopLevel(t *testing.T) {
	conds, err := ParseConditions("$1>=13:00:00,$1<=13:59:59")
	require.NoError(t, err)
	require.Len(t, conds, 2)
	assert.Equal(t, OpGE, conds[0].Op)
	assert.Equal(t, OpLE, conds[1].Op)
}

func TestParseConditionsQuotedExpr(t *testing.T) {
	conds, err := ParseConditions(`"req=$1"=req=GET`)
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, -1, conds[0].RawCaptureIndex)
	require.Len(t, conds[0].Expr, 2)
}

func TestParseConditionsMissingOperator(t *testing.T) {
	_, err := ParseConditions("$1")
	assert.Error(t, err)
}

func TestEvalStringHourWindow(t *testing.T) {
	re := `(\d\d:\d\d:\d\d)`
	assert.True(t, matchAndEval(t, re, "13:30:00 request", "$1>=13:00:00,$1<=13:59:59"))
	assert.False(t, matchAndEval(t, re, "14:00:01 request", "$1>=13:00:00,$1<=13:59:59"))
}

func TestCompareNumericOrdering(t *testing.T) {
	// parse failure < NaN < finite
	assert.Negative(t, compareNumeric([]byte("abc"), []byte("nan")))
	assert.Negative(t, compareNumeric([]byte("nan"), []byte("1")))
	assert.Negative(t, compareNumeric([]byte("1"), []byte("2")))
	assert.Zero(t, compareNumeric([]byte("-0"), []byte("0")))
}

func TestCompareNumericNaNTiebreak(t *testing.T) {
	// two unparseable-as-ordered NaNs: never spuriously equal unless the
	// raw bit patterns agree
	cmp := compareNumeric([]byte("nan"), []byte("nan"))
	assert.Zero(t, cmp)
}

func TestCompareTimeParseFailureNeverEqual(t *testing.T) {
	assert.Equal(t, -1, compareTime([]byte("garbage"), []byte("garbage"), DefaultTimeFormat))
}

func TestCompareTimeOrdering(t *testing.T) {
	a := []byte("2024-01-01 00:00:00")
	b := []byte("2024-01-02 00:00:00")
	assert.Negative(t, compareTime(a, b, DefaultTimeFormat))
	assert.Positive(t, compareTime(b, a, DefaultTimeFormat))
	assert.Zero(t, compareTime(a, a, DefaultTimeFormat))
}

func TestParseTimeFormatTranslatesDirectives(t *testing.T) {
	f, err := ParseTimeFormat("%Y/%m/%d %H:%M:%S")
	require.NoError(t, err)
	epoch, err := f.ParseEpoch([]byte("2024/03/04 05:06:07"))
	require.NoError(t, err)
	assert.NotZero(t, epoch)
}

func TestParseTimeFormatRejectsUnknownDirective(t *testing.T) {
	_, err := ParseTimeFormat("%Q")
	assert.Error(t, err)
}
