package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"needanalysis/pkg/types"
)

const (
	MsgRequired         = "This field is required."
	MsgNotANumber       = "Must be a number."
	MsgNotAWholeNumber  = "Must be a whole number."
	MsgNotADate         = "Enter a valid date."
	MsgNegative         = "Cannot be negative."
	MsgExpensesPositive = "Fixed monthly expenses must be greater than 0."
	MsgRateRange        = "Bank interest rate must be greater than 0 and at most 100."
	MsgTooManyCovers    = "You can choose at most 3 covers."
	MsgExclusiveCovers  = "Surgery cover and hospital bill cover are mutually exclusive. Choose only one."
	MsgNothingSelected  = "Select at least one insurance need or health cover to continue."
)

const (
	MaxHealthCovers     = 3
	maxBankInterestRate = 100
)

// Text limits, in characters. The whole record has to fit in one encrypted
// cookie, so the sum of these is what bounds its size.
const (
	MaxNameLength         = 60
	MaxAddressLength      = 100
	MaxPhoneLength        = 20
	MaxChildrenAgesLength = 30
	MaxOccupationLength   = 30
)

const (
	fieldHealthCovers   = "healthCovers"
	fieldFixedExpenses  = "fixedMonthlyExpenses"
	fieldBankInterest   = "bankInterestRate"
	fieldUnsecuredLoan  = "unsecuredBankLoan"
	fieldCashInHand     = "cashInHandInsurance"
	fieldFullName       = "fullName"
	fieldDateOfBirth    = "dateOfBirth"
	fieldSpouseName     = "spouseName"
	fieldAddress        = "address"
	fieldPhoneNumber    = "phoneNumber"
	fieldNumberChildren = "numberOfChildren"
	fieldChildrenAges   = "childrenAges"
	fieldOccupation     = "occupation"
	fieldAge            = "age"
	fieldMonthlyIncome  = "monthlyIncome"
)

// Step1Input is the personal details page as posted by the browser.
type Step1Input struct {
	FullName         string `form:"fullName"`
	DateOfBirth      string `form:"dateOfBirth"`
	SpouseName       string `form:"spouseName"`
	Address          string `form:"address"`
	PhoneNumber      string `form:"phoneNumber"`
	NumberOfChildren string `form:"numberOfChildren"`
	ChildrenAges     string `form:"childrenAges"`
	Occupation       string `form:"occupation"`
	Age              string `form:"age"`
	MonthlyIncome    string `form:"monthlyIncome"`
}

// Step3Input is the calculation page as posted by the browser.
type Step3Input struct {
	FixedMonthlyExpenses string `form:"fixedMonthlyExpenses" json:"fixedMonthlyExpenses"`
	BankInterestRate     string `form:"bankInterestRate" json:"bankInterestRate"`
	UnsecuredBankLoan    string `form:"unsecuredBankLoan" json:"unsecuredBankLoan"`
	CashInHandInsurance  string `form:"cashInHandInsurance" json:"cashInHandInsurance"`
}

// Step1 converts the posted strings into personal details. Blank optional
// fields stay nil.
func Step1(in Step1Input) (types.PersonalDetails, FieldErrors) {
	var errs FieldErrors
	var out types.PersonalDetails

	out.FullName = optionalString(in.FullName)

	if s := strings.TrimSpace(in.DateOfBirth); s != "" {
		dob, err := types.ParseDate(s)
		if err != nil {
			errs.add(fieldDateOfBirth, MsgNotADate)
		} else {
			out.DateOfBirth = &dob
		}
	}

	out.SpouseName = optionalString(in.SpouseName)
	out.Address = optionalString(in.Address)
	out.PhoneNumber = optionalString(in.PhoneNumber)

	out.NumberOfChildren = optionalInt(&errs, fieldNumberChildren, in.NumberOfChildren)
	out.ChildrenAges = optionalString(in.ChildrenAges)
	out.Occupation = optionalString(in.Occupation)
	out.Age = optionalInt(&errs, fieldAge, in.Age)
	out.MonthlyIncome = optionalFloat(&errs, fieldMonthlyIncome, in.MonthlyIncome)

	errs = mergeInOrder(step1Order, errs, PersonalDetails(out))

	return out, errs
}

var step1Order = []string{
	fieldFullName, fieldDateOfBirth, fieldSpouseName, fieldAddress, fieldPhoneNumber,
	fieldNumberChildren, fieldChildrenAges, fieldOccupation, fieldAge, fieldMonthlyIncome,
}

// TooLong is the message for a text field over its limit.
func TooLong(max int) string {
	return fmt.Sprintf("Must be at most %d characters.", max)
}

// PersonalDetails checks the presence, length and sign rules of step 1.
func PersonalDetails(p types.PersonalDetails) FieldErrors {
	return mergeInOrder(step1Order, personalRules(p), TextLengths(p))
}

// TextLengths checks only the length limits of the step 1 text fields.
func TextLengths(p types.PersonalDetails) FieldErrors {
	var errs FieldErrors

	limits := []struct {
		field string
		value *string
		max   int
	}{
		{fieldFullName, p.FullName, MaxNameLength},
		{fieldSpouseName, p.SpouseName, MaxNameLength},
		{fieldAddress, p.Address, MaxAddressLength},
		{fieldPhoneNumber, p.PhoneNumber, MaxPhoneLength},
		{fieldChildrenAges, p.ChildrenAges, MaxChildrenAgesLength},
		{fieldOccupation, p.Occupation, MaxOccupationLength},
	}

	for _, l := range limits {
		if l.value != nil && utf8.RuneCountInString(*l.value) > l.max {
			errs.add(l.field, TooLong(l.max))
		}
	}

	return errs
}

// CleanText normalizes free text before it is stored: invalid UTF-8 is
// replaced, control and line-separator characters become plain spaces, and
// the ends are trimmed.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// CleanPersonalDetails applies CleanText to every text field. Fields that
// end up blank become nil.
func CleanPersonalDetails(p types.PersonalDetails) types.PersonalDetails {
	clean := func(v *string) *string {
		if v == nil {
			return nil
		}
		return optionalString(*v)
	}

	p.FullName = clean(p.FullName)
	p.SpouseName = clean(p.SpouseName)
	p.Address = clean(p.Address)
	p.PhoneNumber = clean(p.PhoneNumber)
	p.ChildrenAges = clean(p.ChildrenAges)
	p.Occupation = clean(p.Occupation)

	return p
}

func personalRules(p types.PersonalDetails) FieldErrors {
	var errs FieldErrors

	if blank(p.FullName) {
		errs.add(fieldFullName, MsgRequired)
	}

	if blank(p.PhoneNumber) {
		errs.add(fieldPhoneNumber, MsgRequired)
	}

	if p.NumberOfChildren != nil && *p.NumberOfChildren < 0 {
		errs.add(fieldNumberChildren, MsgNegative)
	}

	if p.Age != nil && *p.Age < 0 {
		errs.add(fieldAge, MsgNegative)
	}

	if p.MonthlyIncome != nil && *p.MonthlyIncome < 0 {
		errs.add(fieldMonthlyIncome, MsgNegative)
	}

	return errs
}

// Step2 applies the two health cover refinements. It does not require any
// box to be ticked; that is HasAnySelection's job.
func Step2(n types.Needs) FieldErrors {
	var errs FieldErrors

	health := n.Health()
	if health.SelectedCount() > MaxHealthCovers {
		errs.add(fieldHealthCovers, MsgTooManyCovers)
	}

	if health.SurgeryCover && health.HospitalBillCover {
		errs.add(fieldHealthCovers, MsgExclusiveCovers)
	}

	return errs
}

// HasAnySelection is the pre-submit gate of step 2: at least one flag must be
// set across either group.
func HasAnySelection(n types.Needs) bool {
	return len(n.Insurance().SelectedKeys()) > 0 || len(n.Health().SelectedKeys()) > 0
}

// Step3 coerces the posted strings and checks the calculation bounds. Blank
// required inputs are reported as required; blank optional inputs become 0.
func Step3(in Step3Input) (types.Calculation, FieldErrors) {
	var errs FieldErrors
	var out types.Calculation

	out.FixedMonthlyExpenses = optionalFloat(&errs, fieldFixedExpenses, in.FixedMonthlyExpenses)
	out.BankInterestRate = optionalFloat(&errs, fieldBankInterest, in.BankInterestRate)
	out.UnsecuredBankLoan = defaultedFloat(&errs, fieldUnsecuredLoan, in.UnsecuredBankLoan)
	out.CashInHandInsurance = defaultedFloat(&errs, fieldCashInHand, in.CashInHandInsurance)

	errs = mergeInOrder(step3Order, errs, Calculation(out, errs...))

	return out, errs
}

var step3Order = []string{fieldFixedExpenses, fieldBankInterest, fieldUnsecuredLoan, fieldCashInHand}

// Calculation checks already-typed step 3 inputs. Fields listed in skip have
// already failed coercion and are not reported twice.
func Calculation(c types.Calculation, skip ...FieldError) FieldErrors {
	var errs FieldErrors
	failed := make(map[string]bool, len(skip))
	for _, fe := range skip {
		failed[fe.Field] = true
	}

	if !failed[fieldFixedExpenses] {
		switch {
		case c.FixedMonthlyExpenses == nil:
			errs.add(fieldFixedExpenses, MsgRequired)
		case *c.FixedMonthlyExpenses <= 0:
			errs.add(fieldFixedExpenses, MsgExpensesPositive)
		}
	}

	if !failed[fieldBankInterest] {
		switch {
		case c.BankInterestRate == nil:
			errs.add(fieldBankInterest, MsgRequired)
		case *c.BankInterestRate <= 0 || *c.BankInterestRate > maxBankInterestRate:
			errs.add(fieldBankInterest, MsgRateRange)
		}
	}

	if !failed[fieldUnsecuredLoan] && c.UnsecuredBankLoan != nil && *c.UnsecuredBankLoan < 0 {
		errs.add(fieldUnsecuredLoan, MsgNegative)
	}

	if !failed[fieldCashInHand] && c.CashInHandInsurance != nil && *c.CashInHandInsurance < 0 {
		errs.add(fieldCashInHand, MsgNegative)
	}

	return errs
}

func optionalString(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// optionalFloat leaves blank input nil so required checks can fire.
func optionalFloat(errs *FieldErrors, field, raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	v, ok := parseFinite(raw)
	if !ok {
		errs.add(field, MsgNotANumber)
		return nil
	}

	return &v
}

// defaultedFloat turns blank input into 0.
func defaultedFloat(errs *FieldErrors, field, raw string) *float64 {
	if strings.TrimSpace(raw) == "" {
		var zero float64
		return &zero
	}
	return optionalFloat(errs, field, raw)
}

func optionalInt(errs *FieldErrors, field, raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		errs.add(field, MsgNotAWholeNumber)
		return nil
	}

	return &v
}

// mergeInOrder combines coercion and rule failures, sorted by the field
// order of the step.
func mergeInOrder(order []string, groups ...FieldErrors) FieldErrors {
	var out FieldErrors
	for _, field := range order {
		for _, group := range groups {
			for _, fe := range group {
				if fe.Field == field {
					out = append(out, fe)
				}
			}
		}
	}
	return out
}
