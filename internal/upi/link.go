// Package upi builds payment-app deep links from payout identifiers. The
// system never moves money; these links hand off to the user's UPI app.
package upi

import (
	"net/url"
	"regexp"

	"github.com/shopspring/decimal"
)

// idPattern matches name@bank-handle payout identifiers. The id is otherwise
// opaque; it is only ever passed through into a deep link.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,}@[a-zA-Z]{2,}$`)

// ValidID reports whether s looks like a UPI payout identifier.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// PayLink builds a scheme://pay deep link for the given payee and amount.
// Standard UPI parameter names: pa (payee address), pn (payee name),
// am (amount), cu (currency), tn (transaction note).
func PayLink(scheme, payeeID, payeeName string, amount decimal.Decimal, currency, note string) string {
	params := url.Values{}
	params.Set("pa", payeeID)
	params.Set("pn", payeeName)
	params.Set("am", amount.StringFixed(2))
	params.Set("cu", currency)
	if note != "" {
		params.Set("tn", note)
	}
	return scheme + "://pay?" + params.Encode()
}
