package types

import (
	"strings"
	"time"
)

type FormStatus string

const (
	FormStatusInProgress FormStatus = "in_progress"
	FormStatusCompleted  FormStatus = "completed"
)

// NeedAnalysisForm is the remote copy of a FormRecord, one row per access link.
type NeedAnalysisForm struct {
	ID     string `db:"id" json:"id"`
	LinkID string `db:"link_id" json:"link_id"`
	UserID string `db:"user_id" json:"user_id"`

	PersonalColumns
	NeedsColumns
	CalculationColumns

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type PersonalColumns struct {
	FullName         *string    `db:"full_name" json:"full_name"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth"`
	SpouseName       *string    `db:"spouse_name" json:"spouse_name"`
	Address          *string    `db:"address" json:"address"`
	PhoneNumber      *string    `db:"phone_number" json:"phone_number"`
	NumberOfChildren *int       `db:"number_of_children" json:"number_of_children"`
	ChildrenAges     *string    `db:"children_ages" json:"children_ages"`
	Occupation       *string    `db:"occupation" json:"occupation"`
	Age              *int       `db:"age" json:"age"`
	MonthlyIncome    *float64   `db:"monthly_income" json:"monthly_income"`
}

type NeedsColumns struct {
	InsuranceNeeds []string `db:"insurance_needs" json:"insurance_needs"`
	HealthCovers   []string `db:"health_covers" json:"health_covers"`
}

type CalculationColumns struct {
	FixedMonthlyExpenses *float64   `db:"fixed_monthly_expenses" json:"fixed_monthly_expenses"`
	BankInterestRate     *float64   `db:"bank_interest_rate" json:"bank_interest_rate"`
	UnsecuredBankLoan    *float64   `db:"unsecured_bank_loan" json:"unsecured_bank_loan"`
	CashInHandInsurance  *float64   `db:"cash_in_hand_insurance" json:"cash_in_hand_insurance"`
	HumanLifeValue       *int64     `db:"human_life_value" json:"human_life_value"`
	ActualHumanLifeValue *int64     `db:"actual_human_life_value" json:"actual_human_life_value"`
	Status               FormStatus `db:"status" json:"status"`
}

func PersonalColumnsFrom(p PersonalDetails) PersonalColumns {
	cols := PersonalColumns{
		FullName:         trimmedOrNil(p.FullName),
		SpouseName:       trimmedOrNil(p.SpouseName),
		Address:          trimmedOrNil(p.Address),
		PhoneNumber:      trimmedOrNil(p.PhoneNumber),
		NumberOfChildren: copyPtr(p.NumberOfChildren),
		ChildrenAges:     trimmedOrNil(p.ChildrenAges),
		Occupation:       trimmedOrNil(p.Occupation),
		Age:              copyPtr(p.Age),
		MonthlyIncome:    copyPtr(p.MonthlyIncome),
	}

	if p.DateOfBirth != nil && !p.DateOfBirth.IsZero() {
		dob := p.DateOfBirth.Time
		cols.DateOfBirth = &dob
	}

	return cols
}

// NeedsColumnsFrom flattens both checkbox groups into lists of the checked keys.
func NeedsColumnsFrom(n Needs) NeedsColumns {
	return NeedsColumns{
		InsuranceNeeds: n.Insurance().SelectedKeys(),
		HealthCovers:   n.Health().SelectedKeys(),
	}
}

func CalculationColumnsFrom(c Calculation) CalculationColumns {
	status := FormStatusInProgress
	if c.IsCompleted() {
		status = FormStatusCompleted
	}

	return CalculationColumns{
		FixedMonthlyExpenses: copyPtr(c.FixedMonthlyExpenses),
		BankInterestRate:     copyPtr(c.BankInterestRate),
		UnsecuredBankLoan:    copyPtr(c.UnsecuredBankLoan),
		CashInHandInsurance:  copyPtr(c.CashInHandInsurance),
		HumanLifeValue:       copyPtr(c.HLValue),
		ActualHumanLifeValue: copyPtr(c.ActualHLValue),
		Status:               status,
	}
}

// Record rebuilds the client-side shape of the form from the stored row.
// Step 4 has no server-side columns and always comes back at its defaults.
func (f *NeedAnalysisForm) Record() FormRecord {
	record := DefaultFormRecord()

	step1 := PersonalDetails{
		FullName:         copyPtr(f.FullName),
		SpouseName:       copyPtr(f.SpouseName),
		Address:          copyPtr(f.Address),
		PhoneNumber:      copyPtr(f.PhoneNumber),
		NumberOfChildren: copyPtr(f.NumberOfChildren),
		ChildrenAges:     copyPtr(f.ChildrenAges),
		Occupation:       copyPtr(f.Occupation),
		Age:              copyPtr(f.Age),
		MonthlyIncome:    copyPtr(f.MonthlyIncome),
	}
	if f.DateOfBirth != nil {
		dob := NewDate(*f.DateOfBirth)
		step1.DateOfBirth = &dob
	}
	record.Step1.Merge(step1)

	insurance := InsuranceNeedsFromKeys(f.InsuranceNeeds)
	health := HealthCoversFromKeys(f.HealthCovers)
	record.Step2.Merge(Needs{InsuranceNeeds: &insurance, HealthCovers: &health})

	completed := f.Status == FormStatusCompleted
	record.Step3.Merge(Calculation{
		FixedMonthlyExpenses: copyPtr(f.FixedMonthlyExpenses),
		BankInterestRate:     copyPtr(f.BankInterestRate),
		UnsecuredBankLoan:    copyPtr(f.UnsecuredBankLoan),
		CashInHandInsurance:  copyPtr(f.CashInHandInsurance),
		HLValue:              copyPtr(f.HumanLifeValue),
		ActualHLValue:        copyPtr(f.ActualHumanLifeValue),
		Completed:            &completed,
	})

	return record
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
