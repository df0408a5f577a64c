package sales

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaymentCode derives the code a buyer presents to settle a sale: a
// fragment of the sale identity plus the generation instant encoded in
// base 36. Pure; called once per sale at the CODE_GENERATED transition.
func PaymentCode(saleID string, now time.Time) string {
	fragment := saleID
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("PAY-%s-%s", fragment, ts)
}
