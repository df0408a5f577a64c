package sales

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentCode_Format(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	code := PaymentCode("a1b2c3d4-e5f6-7890-abcd-ef1234567890", at)

	assert.True(t, strings.HasPrefix(code, "PAY-a1b2c3d4-"), "code was %s", code)

	ts := strings.TrimPrefix(code, "PAY-a1b2c3d4-")
	assert.NotEmpty(t, ts)
	assert.Equal(t, strings.ToUpper(ts), ts, "timestamp fragment must be uppercase")
}

func TestPaymentCode_ShortID(t *testing.T) {
	code := PaymentCode("abc", time.Now())
	assert.True(t, strings.HasPrefix(code, "PAY-abc-"))
}

func TestPaymentCode_Deterministic(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, PaymentCode("sale-1", at), PaymentCode("sale-1", at))
}

func TestPaymentCode_VariesWithTime(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	later := at.Add(2 * time.Second)
	assert.NotEqual(t, PaymentCode("sale-1", at), PaymentCode("sale-1", later))
}
