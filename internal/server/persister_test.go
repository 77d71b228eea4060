package server

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"needanalysis/internal/formstate"
	"needanalysis/internal/validate"
	"needanalysis/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// largestRecord fills every field of the record to its limit. Text uses a
// four-byte character so each rune costs as much as it can in the cookie.
func largestRecord() types.FormRecord {
	text := func(n int) *string {
		s := strings.Repeat("\U0001D11E", n)
		return &s
	}
	maxInt := math.MaxInt
	extremeFloat := -math.MaxFloat64
	extremeInt64 := int64(math.MinInt64)
	done := true
	at := time.Date(2026, time.December, 31, 23, 59, 59, 999999999, time.UTC)
	dob := types.NewDate(at)

	return types.FormRecord{
		Step1: types.PersonalDetails{
			FullName:         text(validate.MaxNameLength),
			DateOfBirth:      &dob,
			SpouseName:       text(validate.MaxNameLength),
			Address:          text(validate.MaxAddressLength),
			PhoneNumber:      text(validate.MaxPhoneLength),
			NumberOfChildren: &maxInt,
			ChildrenAges:     text(validate.MaxChildrenAgesLength),
			Occupation:       text(validate.MaxOccupationLength),
			Age:              &maxInt,
			MonthlyIncome:    &extremeFloat,
		},
		Step2: types.Needs{
			InsuranceNeeds: &types.InsuranceNeeds{
				DependentCostOfLiving: true,
				HigherEducation:       true,
				LongTermSavings:       true,
				ShortTermSavings:      true,
				PensionFund:           true,
			},
			HealthCovers: &types.HealthCovers{
				DailyHospitalization: true,
				SurgeryCover:         true,
				HospitalBillCover:    true,
				CriticalIllness:      true,
			},
		},
		Step3: types.Calculation{
			FixedMonthlyExpenses: &extremeFloat,
			BankInterestRate:     &extremeFloat,
			UnsecuredBankLoan:    &extremeFloat,
			CashInHandInsurance:  &extremeFloat,
			HLValue:              &extremeInt64,
			ActualHLValue:        &extremeInt64,
			Completed:            &done,
			CompletedAt:          &at,
		},
		Step4: types.Completion{
			Completed:   &done,
			CompletedAt: &at,
		},
	}
}

func TestLargestRecordFitsFormCookie(t *testing.T) {
	env := newTestEnv(t)
	logger, _ := test.NewNullLogger()

	record := largestRecord()
	require.Empty(t, validate.TextLengths(record.Step1))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/form/link1/step1", nil)

	state := formstate.New(env.svc.formPersister(rec, req, "link1"), logger)
	state.Replace(record)
	require.NoError(t, state.PersistErr())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.LessOrEqual(t, len(cookies[0].Name)+len(cookies[0].Value), 4096)

	next := httptest.NewRequest(http.MethodGet, "/form/link1/step4", nil)
	next.AddCookie(cookies[0])

	reloaded := formstate.New(env.svc.formPersister(httptest.NewRecorder(), next, "link1"), logger)
	assert.True(t, reloaded.Restored())
	assert.Equal(t, record, reloaded.AllData())
}

func TestOverlongRecordIsReportedNotDropped(t *testing.T) {
	env := newTestEnv(t)
	logger, _ := test.NewNullLogger()

	record := largestRecord()
	long := strings.Repeat("\U0001D11E", 2500)
	record.Step1.Address = &long

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/form/link1/step1", nil)

	state := formstate.New(env.svc.formPersister(rec, req, "link1"), logger)
	state.Replace(record)

	assert.Error(t, state.PersistErr())
	assert.Empty(t, rec.Result().Cookies())
}
