package validate

import (
	"strings"
	"testing"

	"needanalysis/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func covers(h types.HealthCovers) types.Needs {
	return types.Needs{InsuranceNeeds: &types.InsuranceNeeds{}, HealthCovers: &h}
}

func TestStep2(t *testing.T) {
	tests := []struct {
		name     string
		needs    types.Needs
		expected []string
	}{
		{
			name:  "no covers",
			needs: covers(types.HealthCovers{}),
		},
		{
			name:  "three compatible covers",
			needs: covers(types.HealthCovers{DailyHospitalization: true, SurgeryCover: true, CriticalIllness: true}),
		},
		{
			name:     "four covers",
			needs:    covers(types.HealthCovers{DailyHospitalization: true, SurgeryCover: true, HospitalBillCover: true, CriticalIllness: true}),
			expected: []string{MsgTooManyCovers, MsgExclusiveCovers},
		},
		{
			name:     "surgery and hospital bill alone",
			needs:    covers(types.HealthCovers{SurgeryCover: true, HospitalBillCover: true}),
			expected: []string{MsgExclusiveCovers},
		},
		{
			name:     "surgery and hospital bill with another cover",
			needs:    covers(types.HealthCovers{SurgeryCover: true, HospitalBillCover: true, CriticalIllness: true}),
			expected: []string{MsgExclusiveCovers},
		},
		{
			name:  "nil groups",
			needs: types.Needs{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Step2(tt.needs)

			var msgs []string
			for _, fe := range errs {
				assert.Equal(t, "healthCovers", fe.Field)
				msgs = append(msgs, fe.Message)
			}
			assert.Equal(t, tt.expected, msgs)
		})
	}
}

func TestHasAnySelection(t *testing.T) {
	assert.False(t, HasAnySelection(types.Needs{}))
	assert.False(t, HasAnySelection(covers(types.HealthCovers{})))
	assert.True(t, HasAnySelection(covers(types.HealthCovers{CriticalIllness: true})))
	assert.True(t, HasAnySelection(types.Needs{InsuranceNeeds: &types.InsuranceNeeds{PensionFund: true}}))
}

func TestStep3Coercion(t *testing.T) {
	tests := []struct {
		name          string
		input         Step3Input
		expectedField []string
		expectedMsg   []string
	}{
		{
			name:  "valid with blank optionals",
			input: Step3Input{FixedMonthlyExpenses: "6000", BankInterestRate: "12"},
		},
		{
			name:          "blank required fields",
			input:         Step3Input{},
			expectedField: []string{"fixedMonthlyExpenses", "bankInterestRate"},
			expectedMsg:   []string{MsgRequired, MsgRequired},
		},
		{
			name:          "whitespace counts as blank",
			input:         Step3Input{FixedMonthlyExpenses: "  ", BankInterestRate: "5"},
			expectedField: []string{"fixedMonthlyExpenses"},
			expectedMsg:   []string{MsgRequired},
		},
		{
			name:          "zero expenses",
			input:         Step3Input{FixedMonthlyExpenses: "0", BankInterestRate: "5"},
			expectedField: []string{"fixedMonthlyExpenses"},
			expectedMsg:   []string{MsgExpensesPositive},
		},
		{
			name:          "rate above 100",
			input:         Step3Input{FixedMonthlyExpenses: "10", BankInterestRate: "100.5"},
			expectedField: []string{"bankInterestRate"},
			expectedMsg:   []string{MsgRateRange},
		},
		{
			name:  "rate of exactly 100",
			input: Step3Input{FixedMonthlyExpenses: "10", BankInterestRate: "100"},
		},
		{
			name:          "not a number",
			input:         Step3Input{FixedMonthlyExpenses: "abc", BankInterestRate: "NaN"},
			expectedField: []string{"fixedMonthlyExpenses", "bankInterestRate"},
			expectedMsg:   []string{MsgNotANumber, MsgNotANumber},
		},
		{
			name:          "negative optionals",
			input:         Step3Input{FixedMonthlyExpenses: "10", BankInterestRate: "5", UnsecuredBankLoan: "-1", CashInHandInsurance: "-2"},
			expectedField: []string{"unsecuredBankLoan", "cashInHandInsurance"},
			expectedMsg:   []string{MsgNegative, MsgNegative},
		},
		{
			name:          "errors come back in field order",
			input:         Step3Input{FixedMonthlyExpenses: "", BankInterestRate: "x", CashInHandInsurance: "-3"},
			expectedField: []string{"fixedMonthlyExpenses", "bankInterestRate", "cashInHandInsurance"},
			expectedMsg:   []string{MsgRequired, MsgNotANumber, MsgNegative},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Step3(tt.input)

			var fields, msgs []string
			for _, fe := range errs {
				fields = append(fields, fe.Field)
				msgs = append(msgs, fe.Message)
			}

			assert.Equal(t, tt.expectedField, fields)
			assert.Equal(t, tt.expectedMsg, msgs)
		})
	}
}

func TestStep3DefaultsOptionalFieldsToZero(t *testing.T) {
	out, errs := Step3(Step3Input{FixedMonthlyExpenses: "6000", BankInterestRate: "12"})
	require.NoError(t, errs.Err())

	require.NotNil(t, out.UnsecuredBankLoan)
	require.NotNil(t, out.CashInHandInsurance)
	assert.Equal(t, 0.0, *out.UnsecuredBankLoan)
	assert.Equal(t, 0.0, *out.CashInHandInsurance)
	assert.Equal(t, 6000.0, *out.FixedMonthlyExpenses)
	assert.Equal(t, 12.0, *out.BankInterestRate)
}

func TestStep1(t *testing.T) {
	out, errs := Step1(Step1Input{
		FullName:         "  Jane Doe ",
		DateOfBirth:      "1990-05-01",
		PhoneNumber:      "0812345678",
		NumberOfChildren: "2",
		ChildrenAges:     "4, 7",
		Age:              "34",
		MonthlyIncome:    "45000.50",
	})
	require.NoError(t, errs.Err())

	assert.Equal(t, "Jane Doe", *out.FullName)
	assert.Equal(t, "1990-05-01", out.DateOfBirth.String())
	assert.Equal(t, 2, *out.NumberOfChildren)
	assert.Equal(t, 34, *out.Age)
	assert.Equal(t, 45000.50, *out.MonthlyIncome)
	assert.Nil(t, out.SpouseName)
	assert.Nil(t, out.Occupation)
}

func TestStep1Errors(t *testing.T) {
	_, errs := Step1(Step1Input{
		DateOfBirth:      "not a date",
		NumberOfChildren: "two",
		Age:              "-3",
	})

	first, ok := errs.First()
	require.True(t, ok)
	assert.Equal(t, FieldError{Field: "fullName", Message: MsgRequired}, first)

	assert.Equal(t, map[string]string{
		"fullName":         MsgRequired,
		"dateOfBirth":      MsgNotADate,
		"phoneNumber":      MsgRequired,
		"numberOfChildren": MsgNotAWholeNumber,
		"age":              MsgNegative,
	}, errs.Map())
}

func TestStep1TextLimits(t *testing.T) {
	_, errs := Step1(Step1Input{
		FullName:    strings.Repeat("é", MaxNameLength),
		PhoneNumber: "0812345678",
		Address:     strings.Repeat("a", MaxAddressLength+1),
		Occupation:  strings.Repeat("b", MaxOccupationLength+1),
	})

	assert.Equal(t, map[string]string{
		"address":    TooLong(MaxAddressLength),
		"occupation": TooLong(MaxOccupationLength),
	}, errs.Map())
	assert.Equal(t, "Must be at most 100 characters.", TooLong(MaxAddressLength))
}

func TestTextLengthsCountsCharacters(t *testing.T) {
	name := strings.Repeat("\U0001D11E", MaxNameLength)
	assert.Empty(t, TextLengths(types.PersonalDetails{FullName: &name}))

	name += "x"
	assert.Equal(t, map[string]string{"fullName": TooLong(MaxNameLength)}, TextLengths(types.PersonalDetails{FullName: &name}).Map())
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "trims", in: "  Jane  ", expected: "Jane"},
		{name: "newlines", in: "12 Main St\r\nBangkok", expected: "12 Main St  Bangkok"},
		{name: "line separator", in: "a\u2028b\u2029c", expected: "a b c"},
		{name: "control", in: "a\x00b\x1bc", expected: "a b c"},
		{name: "invalid utf8", in: "a\xffb", expected: "a\uFFFDb"},
		{name: "html kept", in: "<b>&</b>", expected: "<b>&</b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.in))
		})
	}
}

func TestCleanPersonalDetails(t *testing.T) {
	name := " Jane\tDoe "
	blank := " \n "
	age := 34

	out := CleanPersonalDetails(types.PersonalDetails{FullName: &name, Address: &blank, Age: &age})

	assert.Equal(t, "Jane Doe", *out.FullName)
	assert.Nil(t, out.Address)
	assert.Nil(t, out.PhoneNumber)
	assert.Equal(t, 34, *out.Age)
	assert.Equal(t, " Jane\tDoe ", name)
}

func TestFieldErrorsErr(t *testing.T) {
	var none FieldErrors
	assert.NoError(t, none.Err())

	_, ok := none.First()
	assert.False(t, ok)

	some := FieldErrors{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}
	assert.EqualError(t, some.Err(), "a: bad; b: worse")
}
