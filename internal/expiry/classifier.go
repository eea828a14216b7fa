// Package expiry определяет товары с истекающим сроком годности и управляет скидкой на них.
package expiry

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Classification описывает результат классификации товара.
type Classification struct {
	NearExpiry      bool
	DiscountPercent decimal.Decimal
}

// Policy задаёт окно в днях и размер скидки для товаров с истекающим сроком.
type Policy struct {
	ThresholdDays   int
	DiscountPercent decimal.Decimal
}

// Classify применяет Classify с параметрами политики.
func (p Policy) Classify(expiryDate *time.Time, asOf time.Time) Classification {
	return Classify(expiryDate, asOf, p.ThresholdDays, p.DiscountPercent)
}

// Classify относит товар к истекающим, если до даты окончания срока осталось не больше thresholdDays
// календарных дней. Просроченные товары тоже считаются истекающими. Время суток не учитывается.
func Classify(expiryDate *time.Time, asOf time.Time, thresholdDays int, discountPercent decimal.Decimal) Classification {
	if expiryDate == nil {
		return Classification{DiscountPercent: decimal.Zero}
	}

	if DaysUntil(*expiryDate, asOf) <= thresholdDays {
		return Classification{NearExpiry: true, DiscountPercent: discountPercent}
	}

	return Classification{DiscountPercent: decimal.Zero}
}

// DaysUntil возвращает число календарных дней от asOf до expiryDate. Отрицательно для просроченных.
func DaysUntil(expiryDate, asOf time.Time) int {
	return int(dateOnly(expiryDate).Sub(dateOnly(asOf)) / day)
}

// ThresholdDate возвращает первую дату, не попадающую в окно: товары с датой строго меньше неё истекающие.
func ThresholdDate(asOf time.Time, thresholdDays int) time.Time {
	return dateOnly(asOf).AddDate(0, 0, thresholdDays+1)
}

// dateOnly переносит календарную дату t в полночь UTC, чтобы разница была кратна суткам.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
