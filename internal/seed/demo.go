// Package seed fills a development database with demo links and forms for
// one advisor.
package seed

import (
	"context"
	"fmt"
	"time"

	"needanalysis/internal/calc"
	"needanalysis/internal/utils"
	"needanalysis/pkg/types"
)

type LinkCreator interface {
	CreateLink(ctx context.Context, link *types.FormLink) error
}

type FormWriter interface {
	CreateForm(ctx context.Context, form *types.NeedAnalysisForm) error
	UpdateNeeds(ctx context.Context, linkID string, cols types.NeedsColumns) error
	UpdateCalculation(ctx context.Context, linkID string, cols types.CalculationColumns) error
}

type demoCustomer struct {
	FullName      string
	PhoneNumber   string
	DateOfBirth   time.Time
	Occupation    string
	MonthlyIncome float64

	// Progress is the last step the customer saved, zero for an untouched link.
	Progress int
	Expired  bool

	Needs  []string
	Covers []string

	FixedMonthlyExpenses float64
	BankInterestRate     float64
	UnsecuredBankLoan    float64
	CashInHandInsurance  float64
}

var demoCustomers = []demoCustomer{
	{Progress: 0},
	{
		FullName:      "Ava Williams",
		PhoneNumber:   "0811111111",
		DateOfBirth:   time.Date(1988, time.March, 4, 0, 0, 0, 0, time.UTC),
		Occupation:    "Teacher",
		MonthlyIncome: 32000,
		Progress:      1,
	},
	{
		FullName:      "Liam Johnson",
		PhoneNumber:   "0822222222",
		DateOfBirth:   time.Date(1983, time.October, 12, 0, 0, 0, 0, time.UTC),
		Occupation:    "Engineer",
		MonthlyIncome: 65000,
		Progress:      2,
		Needs:         []string{types.NeedHigherEducation, types.NeedPensionFund},
		Covers:        []string{types.CoverSurgery},
	},
	{
		FullName:             "Mia Davis",
		PhoneNumber:          "0833333333",
		DateOfBirth:          time.Date(1991, time.July, 23, 0, 0, 0, 0, time.UTC),
		Occupation:           "Nurse",
		MonthlyIncome:        41000,
		Progress:             3,
		Needs:                []string{types.NeedDependentCostOfLiving},
		Covers:               []string{types.CoverDailyHospitalization, types.CoverCriticalIllness},
		FixedMonthlyExpenses: 6000,
		BankInterestRate:     12,
		UnsecuredBankLoan:    100000,
		CashInHandInsurance:  50000,
	},
	{
		FullName:    "Noah Brown",
		PhoneNumber: "0844444444",
		DateOfBirth: time.Date(1979, time.January, 30, 0, 0, 0, 0, time.UTC),
		Progress:    1,
		Expired:     true,
	},
}

// Demo creates one link per demo customer for advisorID and saves each
// customer's progress the way the wizard would. It returns the new links.
func Demo(ctx context.Context, links LinkCreator, forms FormWriter, advisorID string, now time.Time, expiry time.Duration) ([]*types.FormLink, error) {
	created := make([]*types.FormLink, 0, len(demoCustomers))

	for i, customer := range demoCustomers {
		expiryDate := now.Add(expiry)
		if customer.Expired {
			expiryDate = now.Add(-24 * time.Hour)
		}

		link := &types.FormLink{
			UserID:     advisorID,
			Status:     types.LinkStatusActive,
			ExpiryDate: expiryDate,
		}

		if err := links.CreateLink(ctx, link); err != nil {
			return created, fmt.Errorf("failed to create demo link %d: %w", i, err)
		}
		created = append(created, link)

		if err := saveProgress(ctx, forms, link, customer); err != nil {
			return created, fmt.Errorf("failed to save demo form for link %s: %w", link.ID, err)
		}
	}

	return created, nil
}

func saveProgress(ctx context.Context, forms FormWriter, link *types.FormLink, customer demoCustomer) error {
	if customer.Progress < 1 {
		return nil
	}

	form := &types.NeedAnalysisForm{
		LinkID: link.ID,
		UserID: link.UserID,
		PersonalColumns: types.PersonalColumns{
			FullName:      utils.StringPtr(customer.FullName),
			PhoneNumber:   utils.StringPtr(customer.PhoneNumber),
			DateOfBirth:   utils.TimePtr(customer.DateOfBirth),
			MonthlyIncome: utils.Float64Ptr(customer.MonthlyIncome),
		},
	}
	if customer.Occupation != "" {
		form.Occupation = utils.StringPtr(customer.Occupation)
	}

	if err := forms.CreateForm(ctx, form); err != nil {
		return err
	}

	if customer.Progress < 2 {
		return nil
	}

	insurance := types.InsuranceNeedsFromKeys(customer.Needs)
	health := types.HealthCoversFromKeys(customer.Covers)

	needs := types.NeedsColumnsFrom(types.Needs{InsuranceNeeds: &insurance, HealthCovers: &health})
	if err := forms.UpdateNeeds(ctx, link.ID, needs); err != nil {
		return err
	}

	if customer.Progress < 3 {
		return nil
	}

	calculation := types.Calculation{
		FixedMonthlyExpenses: utils.Float64Ptr(customer.FixedMonthlyExpenses),
		BankInterestRate:     utils.Float64Ptr(customer.BankInterestRate),
		UnsecuredBankLoan:    utils.Float64Ptr(customer.UnsecuredBankLoan),
		CashInHandInsurance:  utils.Float64Ptr(customer.CashInHandInsurance),
		Completed:            utils.BoolPtr(true),
	}
	result := calc.Compute(calc.InputsFrom(calculation))
	calculation.HLValue = utils.Int64Ptr(result.HLValue)
	calculation.ActualHLValue = utils.Int64Ptr(result.ActualHLValue)

	return forms.UpdateCalculation(ctx, link.ID, types.CalculationColumnsFrom(calculation))
}
