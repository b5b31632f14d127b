package model

import "github.com/shopspring/decimal"

// RateTable 币种→PLN乘数表，由汇率服务在同步开始前取好，引擎本身不做换算
type RateTable map[string]decimal.Decimal

// ToPLN 把原币种金额换算为PLN；PLN或未知币种原样返回
func (t RateTable) ToPLN(amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == "PLN" || currency == "" {
		return amount
	}
	rate, ok := t[currency]
	if !ok {
		return amount
	}
	return amount.Mul(rate).Round(2)
}
