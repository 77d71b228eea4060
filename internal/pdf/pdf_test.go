package pdf

import (
	"bytes"
	"testing"
	"time"

	"needanalysis/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	record := types.DefaultFormRecord()
	name := "Jane Doe"
	phone := "0812345678"
	hlv := int64(600000)
	actual := int64(550000)
	expenses := 6000.0
	rate := 12.0
	dob := types.NewDate(time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC))

	record.Step1.FullName = &name
	record.Step1.PhoneNumber = &phone
	record.Step1.DateOfBirth = &dob
	record.Step2.InsuranceNeeds = &types.InsuranceNeeds{PensionFund: true}
	record.Step2.HealthCovers = &types.HealthCovers{SurgeryCover: true}
	record.Step3.FixedMonthlyExpenses = &expenses
	record.Step3.BankInterestRate = &rate
	record.Step3.HLValue = &hlv
	record.Step3.ActualHLValue = &actual

	var buf bytes.Buffer
	err := Render(&buf, record, Options{
		AdvisorName: "Advisor",
		GeneratedAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestRenderDefaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, types.DefaultFormRecord(), Options{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFileName(t *testing.T) {
	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		customer string
		expected string
	}{
		{name: "simple", customer: "Jane", expected: "NeedAnalysis_Jane_2026-03-09.pdf"},
		{name: "spaces", customer: " Jane  Doe ", expected: "NeedAnalysis_Jane_Doe_2026-03-09.pdf"},
		{name: "separators", customer: "a/b\\c", expected: "NeedAnalysis_a_b_c_2026-03-09.pdf"},
		{name: "blank", customer: "", expected: "NeedAnalysis_Customer_2026-03-09.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(tt.customer, date))
		})
	}
}

func TestFormatting(t *testing.T) {
	v := 1234567.5

	assert.Equal(t, "600,000", Amount(600000))
	assert.Equal(t, "1,234,567.50", Currency(&v))
	assert.Equal(t, "-", Currency(nil))
	assert.Equal(t, "-", Percent(nil))
	assert.Equal(t, "01 May 1990", DisplayDate(time.Date(1990, time.May, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "-", DisplayDate(time.Time{}))
}
