// Package calc derives the two life-value figures shown on the calculation step.
package calc

import (
	"math"

	"needanalysis/pkg/types"
)

// Inputs are the calculation step values. Nil means the field was left empty.
type Inputs struct {
	FixedMonthlyExpenses *float64 `json:"fixedMonthlyExpenses"`
	BankInterestRate     *float64 `json:"bankInterestRate"`
	UnsecuredBankLoan    *float64 `json:"unsecuredBankLoan"`
	CashInHandInsurance  *float64 `json:"cashInHandInsurance"`
}

type Result struct {
	HLValue       int64 `json:"hlvalue"`
	ActualHLValue int64 `json:"actualHLValue"`
}

func InputsFrom(c types.Calculation) Inputs {
	return Inputs{
		FixedMonthlyExpenses: c.FixedMonthlyExpenses,
		BankInterestRate:     c.BankInterestRate,
		UnsecuredBankLoan:    c.UnsecuredBankLoan,
		CashInHandInsurance:  c.CashInHandInsurance,
	}
}

// Compute runs both calculations in order. The actual value depends on the
// human life value, so they are never computed independently.
func Compute(in Inputs) Result {
	hlv := HumanLifeValue(in.FixedMonthlyExpenses, in.BankInterestRate)
	return Result{
		HLValue:       hlv,
		ActualHLValue: ActualHumanLifeValue(hlv, in.UnsecuredBankLoan, in.CashInHandInsurance),
	}
}

// HumanLifeValue is the capital that, at the given annual bank interest rate
// in percent, yields the yearly fixed expenses:
//
//	round(fixedMonthlyExpenses * 12 / (bankInterestRate / 100))
//
// Missing, non-finite or non-positive inputs give 0, as does any result that
// is not a finite non-negative number.
func HumanLifeValue(fixedMonthlyExpenses, bankInterestRate *float64) int64 {
	expenses, ok := positive(fixedMonthlyExpenses)
	if !ok {
		return 0
	}

	rate, ok := positive(bankInterestRate)
	if !ok {
		return 0
	}

	return clampRound((expenses * 12) / (rate / 100))
}

// ActualHumanLifeValue adjusts the human life value for outstanding unsecured
// debt and for cash or cover already held, floored at 0. Missing or
// non-finite adjustments count as 0.
func ActualHumanLifeValue(hlv int64, unsecuredBankLoan, cashInHandInsurance *float64) int64 {
	loan := orZero(unsecuredBankLoan)
	cash := orZero(cashInHandInsurance)

	return clampRound(float64(hlv) + loan - cash)
}

func positive(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, false
	}
	return *v, true
}

func orZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func clampRound(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	rounded := math.Round(v)
	if rounded <= 0 {
		return 0
	}

	if rounded >= math.MaxInt64 {
		return 0
	}

	return int64(rounded)
}
