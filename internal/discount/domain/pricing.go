package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Compute applies d to originalAmount. A percentage is rounded to the nearest
// whole unit before the cap; a fixed amount never exceeds originalAmount.
func Compute(d *Discount, originalAmount int64) (discountAmount, finalAmount int64) {
	if originalAmount < 0 {
		originalAmount = 0
	}

	switch {
	case d.DiscountPercentage != nil && d.DiscountPercentage.IsPositive():
		discountAmount = decimal.NewFromInt(originalAmount).
			Mul(*d.DiscountPercentage).
			Div(hundred).
			Round(0).
			IntPart()
		if d.MaxDiscount != nil && discountAmount > *d.MaxDiscount {
			discountAmount = *d.MaxDiscount
		}
	case d.DiscountAmount != nil:
		discountAmount = *d.DiscountAmount
		if discountAmount > originalAmount {
			discountAmount = originalAmount
		}
	}

	if discountAmount < 0 {
		discountAmount = 0
	}
	finalAmount = originalAmount - discountAmount
	if finalAmount < 0 {
		finalAmount = 0
	}
	return discountAmount, finalAmount
}

// TotalDiscount sums the amounts of a snapshot list.
func TotalDiscount(details []Detail) int64 {
	var total int64
	for _, d := range details {
		total += d.DiscountAmount
	}
	return total
}
