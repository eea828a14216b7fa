package gateway

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const qrBaseURL = "https://chart.googleapis.com/chart?chs=300x300&cht=qr&chl="

// UPIPayment содержит данные для оплаты по UPI: адрес получателя, платёжный URI и ссылку на QR-код.
type UPIPayment struct {
	VPA    string `json:"vpa"`
	UPIURI string `json:"upiUri"`
	QRURL  string `json:"qrUrl"`
}

// BuildUPIPayment формирует платёжный URI upi://pay с суммой и ссылкой на заказ.
func BuildUPIPayment(vpa, payeeName string, amount decimal.Decimal, reference string) UPIPayment {
	uri := "upi://pay?pa=" + escape(vpa) +
		"&pn=" + escape(payeeName) +
		"&am=" + escape(amount.StringFixed(2)) +
		"&cu=" + CurrencyINR +
		"&tr=" + escape(reference)

	return UPIPayment{
		VPA:    vpa,
		UPIURI: uri,
		QRURL:  qrBaseURL + escape(uri),
	}
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
