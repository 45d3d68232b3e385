package service

import "github.com/shopspring/decimal"

// Currency is the display prefix of money amounts
const Currency = "KSh"

// FormatMoney renders minor units as a major-unit amount, e.g. 400 -> "KSh 4.00"
func FormatMoney(cents int64) string {
	return Currency + " " + decimal.New(cents, -2).StringFixed(2)
}
