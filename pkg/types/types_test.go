package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep(t *testing.T) {
	step, err := ParseStep(" Step3 ")
	require.NoError(t, err)
	assert.Equal(t, StepCalculation, step)
	assert.Equal(t, StepComplete, step.Next())
	assert.Equal(t, StepNeeds, step.Previous())
	assert.Equal(t, StepComplete, StepComplete.Next())
	assert.Equal(t, "/form/abc/step3", step.Path("abc"))

	_, err = ParseStep("step5")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestDateJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare date", input: `"1990-05-01"`, expected: "1990-05-01"},
		{name: "iso timestamp", input: `"1990-05-01T00:00:00.000Z"`, expected: "1990-05-01"},
		{name: "offset timestamp", input: `"1990-05-01T08:00:00+07:00"`, expected: "1990-05-01"},
		{name: "null", input: `null`, expected: ""},
		{name: "empty string", input: `""`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.expected, d.String())
		})
	}

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`12`), &d))

	out, err := json.Marshal(NewDate(time.Date(1990, time.May, 1, 13, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"1990-05-01T00:00:00.000Z"`, string(out))
}

func TestApplyRejectsUnknownStepData(t *testing.T) {
	type bogus struct{ StepData }

	r := DefaultFormRecord()
	assert.ErrorIs(t, r.Apply(bogus{}), ErrUnknownStep)
}

func TestApplyAcceptsPointers(t *testing.T) {
	r := DefaultFormRecord()
	name := "Jane"
	require.NoError(t, r.Apply(&PersonalDetails{FullName: &name}))
	assert.Equal(t, "Jane", r.CustomerName())

	name = "changed"
	assert.Equal(t, "Jane", r.CustomerName())
}

func TestNeedsKeysRoundTrip(t *testing.T) {
	needs := InsuranceNeeds{HigherEducation: true, PensionFund: true}
	health := HealthCovers{DailyHospitalization: true, CriticalIllness: true}

	assert.Equal(t, []string{"higherEducation", "pensionFund"}, needs.SelectedKeys())
	assert.Equal(t, []string{"dailyHospitalization", "criticalIllness"}, health.SelectedKeys())

	assert.Equal(t, needs, InsuranceNeedsFromKeys(needs.SelectedKeys()))
	assert.Equal(t, health, HealthCoversFromKeys(append(health.SelectedKeys(), "unknown")))
}

func TestNeedAnalysisFormRecord(t *testing.T) {
	dob := time.Date(1985, time.January, 20, 0, 0, 0, 0, time.UTC)
	name := "Jane"
	hlv := int64(600000)
	actual := int64(550000)
	expenses := 6000.0
	rate := 12.0

	form := &NeedAnalysisForm{
		LinkID: "link",
		PersonalColumns: PersonalColumns{
			FullName:    &name,
			DateOfBirth: &dob,
		},
		NeedsColumns: NeedsColumns{
			InsuranceNeeds: []string{NeedPensionFund},
			HealthCovers:   []string{CoverSurgery},
		},
		CalculationColumns: CalculationColumns{
			FixedMonthlyExpenses: &expenses,
			BankInterestRate:     &rate,
			HumanLifeValue:       &hlv,
			ActualHumanLifeValue: &actual,
			Status:               FormStatusCompleted,
		},
	}

	record := form.Record()

	assert.Equal(t, "Jane", record.CustomerName())
	assert.Equal(t, "1985-01-20", record.Step1.DateOfBirth.String())
	assert.True(t, record.Step2.Insurance().PensionFund)
	assert.True(t, record.Step2.Health().SurgeryCover)
	assert.Equal(t, int64(600000), *record.Step3.HLValue)
	assert.Equal(t, int64(550000), *record.Step3.ActualHLValue)
	assert.True(t, record.Step3.IsCompleted())
	assert.Equal(t, 0.0, *record.Step3.UnsecuredBankLoan)
	assert.False(t, record.Step4.IsCompleted())
}

func TestColumnsFrom(t *testing.T) {
	blank := "   "
	cols := PersonalColumnsFrom(PersonalDetails{SpouseName: &blank})
	assert.Nil(t, cols.SpouseName)
	assert.Nil(t, cols.DateOfBirth)

	needs := NeedsColumnsFrom(Needs{HealthCovers: &HealthCovers{HospitalBillCover: true}})
	assert.Equal(t, []string{}, needs.InsuranceNeeds)
	assert.Equal(t, []string{CoverHospitalBill}, needs.HealthCovers)

	done := true
	assert.Equal(t, FormStatusCompleted, CalculationColumnsFrom(Calculation{Completed: &done}).Status)
	assert.Equal(t, FormStatusInProgress, CalculationColumnsFrom(Calculation{}).Status)
}

func TestFormLinkCheck(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		link     *FormLink
		expected error
		status   LinkStatus
	}{
		{
			name:   "active and unexpired",
			link:   &FormLink{Status: LinkStatusActive, ExpiryDate: now.Add(time.Hour)},
			status: LinkStatusActive,
		},
		{
			name:     "active but past expiry",
			link:     &FormLink{Status: LinkStatusActive, ExpiryDate: now.Add(-time.Second)},
			expected: ErrLinkExpired,
			status:   LinkStatusExpired,
		},
		{
			name:     "used",
			link:     &FormLink{Status: LinkStatusUsed, ExpiryDate: now.Add(time.Hour)},
			expected: ErrLinkNotFound,
			status:   LinkStatusUsed,
		},
		{
			name:     "marked expired",
			link:     &FormLink{Status: LinkStatusExpired, ExpiryDate: now.Add(time.Hour)},
			expected: ErrLinkNotFound,
			status:   LinkStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.link.Check(now)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
			assert.Equal(t, tt.status, tt.link.EffectiveStatus(now))
		})
	}

	var missing *FormLink
	assert.ErrorIs(t, missing.Check(now), ErrLinkNotFound)
}

func TestNewFormSubmission(t *testing.T) {
	record := DefaultFormRecord()
	name := " Jane "
	income := 50000.0
	hlv := int64(10)
	record.Step1.FullName = &name
	record.Step1.MonthlyIncome = &income
	record.Step3.HLValue = &hlv

	sub := NewFormSubmission("link", "user", record, "https://cdn/x.pdf", "")

	assert.Equal(t, "Jane", *sub.CustomerName)
	assert.Nil(t, sub.PhoneNumber)
	assert.Equal(t, 50000.0, *sub.MonthlyIncome)
	assert.Equal(t, int64(10), *sub.HumanLifeValue)
	assert.Equal(t, "https://cdn/x.pdf", *sub.PDFURL)
	assert.Nil(t, sub.PDFPath)
}
