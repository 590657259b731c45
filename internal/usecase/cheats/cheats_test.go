package cheats

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DeterministicPerDay(t *testing.T) {
	morning := time.Date(2024, time.March, 7, 0, 1, 0, 0, time.UTC)
	evening := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, Generate(morning), Generate(evening))
	assert.NotEqual(t, Generate(morning), Generate(morning.AddDate(0, 0, 1)))
}

func TestGenerate_Shape(t *testing.T) {
	code := strconv.FormatInt(Generate(time.Date(2023, time.December, 31, 12, 0, 0, 0, time.UTC)), 10)

	require.Len(t, code, 8)
	for _, c := range code {
		assert.Contains(t, "1234", string(c))
	}
}

func TestGenerate_SubstitutesDateDigits(t *testing.T) {
	// 11/11/1111 has only the digit 1, which always maps to 2
	date := time.Date(1111, time.November, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(22222222), Generate(date))
}

func TestUsecase_CurrentAndVerify(t *testing.T) {
	now := time.Date(2024, time.June, 3, 23, 30, 0, 0, time.UTC)
	uc, err := NewUsecase("Linggo", "UTC")
	require.NoError(t, err)
	uc.WithClock(func() time.Time { return now })

	first := uc.Current()
	second := uc.Current()
	assert.Equal(t, first, second)
	assert.Equal(t, "Linggo", first.AppName)

	assert.True(t, uc.Verify(strconv.FormatInt(first.AppCode, 10)))
	assert.True(t, uc.Verify(" "+strconv.FormatInt(first.AppCode, 10)+" "))
	assert.False(t, uc.Verify(strconv.FormatInt(first.AppCode+1, 10)))
	assert.False(t, uc.Verify(""))
	assert.False(t, uc.Verify("abc"))
}

func TestUsecase_UsesConfiguredTimeZone(t *testing.T) {
	// 23:30 UTC on June 3rd is already June 4th in Tokyo
	now := time.Date(2024, time.June, 3, 23, 30, 0, 0, time.UTC)
	uc, err := NewUsecase("Linggo", "Asia/Tokyo")
	require.NoError(t, err)
	uc.WithClock(func() time.Time { return now })

	assert.Equal(t, Generate(time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)), uc.Current().AppCode)
}

func TestNewUsecase_BadTimeZone(t *testing.T) {
	_, err := NewUsecase("Linggo", "Nowhere/Place")
	assert.Error(t, err)
}
