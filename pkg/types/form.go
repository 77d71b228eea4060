package types

import (
	"fmt"
	"strings"
	"time"
)

// StepData is one step-namespaced slice of a FormRecord.
type StepData interface {
	Step() Step
}

// FormRecord is the whole need analysis as the customer fills it in.
type FormRecord struct {
	Step1 PersonalDetails `json:"step1"`
	Step2 Needs           `json:"step2"`
	Step3 Calculation     `json:"step3"`
	Step4 Completion      `json:"step4"`
}

type PersonalDetails struct {
	FullName         *string  `json:"fullName"`
	DateOfBirth      *Date    `json:"dateOfBirth"`
	SpouseName       *string  `json:"spouseName"`
	Address          *string  `json:"address"`
	PhoneNumber      *string  `json:"phoneNumber"`
	NumberOfChildren *int     `json:"numberOfChildren"`
	ChildrenAges     *string  `json:"childrenAges"`
	Occupation       *string  `json:"occupation"`
	Age              *int     `json:"age"`
	MonthlyIncome    *float64 `json:"monthlyIncome"`
}

type InsuranceNeeds struct {
	DependentCostOfLiving bool `json:"dependentCostOfLiving"`
	HigherEducation       bool `json:"higherEducation"`
	LongTermSavings       bool `json:"longTermSavings"`
	ShortTermSavings      bool `json:"shortTermSavings"`
	PensionFund           bool `json:"pensionFund"`
}

type HealthCovers struct {
	DailyHospitalization bool `json:"dailyHospitalization"`
	SurgeryCover         bool `json:"surgeryCover"`
	HospitalBillCover    bool `json:"hospitalBillCover"`
	CriticalIllness      bool `json:"criticalIllness"`
}

// Needs holds the two checkbox groups. A nil group in a patch leaves the
// stored group untouched.
type Needs struct {
	InsuranceNeeds *InsuranceNeeds `json:"insuranceNeeds"`
	HealthCovers   *HealthCovers   `json:"healthCovers"`
}

type Calculation struct {
	FixedMonthlyExpenses *float64   `json:"fixedMonthlyExpenses"`
	BankInterestRate     *float64   `json:"bankInterestRate"`
	UnsecuredBankLoan    *float64   `json:"unsecuredBankLoan"`
	CashInHandInsurance  *float64   `json:"cashInHandInsurance"`
	HLValue              *int64     `json:"hlvalue"`
	ActualHLValue        *int64     `json:"actualHLValue"`
	Completed            *bool      `json:"completed"`
	CompletedAt          *time.Time `json:"completedAt"`
}

type Completion struct {
	Completed   *bool      `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (PersonalDetails) Step() Step { return StepPersonal }
func (Needs) Step() Step           { return StepNeeds }
func (Calculation) Step() Step     { return StepCalculation }
func (Completion) Step() Step      { return StepComplete }

// DefaultFormRecord is the record a fresh wizard session starts from.
func DefaultFormRecord() FormRecord {
	var zeroMoney float64
	var zeroValue int64
	notDone := false

	return FormRecord{
		Step1: PersonalDetails{},
		Step2: Needs{
			InsuranceNeeds: &InsuranceNeeds{},
			HealthCovers:   &HealthCovers{},
		},
		Step3: Calculation{
			UnsecuredBankLoan:   copyPtr(&zeroMoney),
			CashInHandInsurance: copyPtr(&zeroMoney),
			HLValue:             copyPtr(&zeroValue),
			ActualHLValue:       copyPtr(&zeroValue),
			Completed:           copyPtr(&notDone),
		},
		Step4: Completion{
			Completed: copyPtr(&notDone),
		},
	}
}

// Apply shallow-merges a step patch into the record. Fields the patch leaves
// nil keep their current value.
func (r *FormRecord) Apply(patch StepData) error {
	switch p := patch.(type) {
	case PersonalDetails:
		r.Step1.Merge(p)
	case *PersonalDetails:
		r.Step1.Merge(*p)
	case Needs:
		r.Step2.Merge(p)
	case *Needs:
		r.Step2.Merge(*p)
	case Calculation:
		r.Step3.Merge(p)
	case *Calculation:
		r.Step3.Merge(*p)
	case Completion:
		r.Step4.Merge(p)
	case *Completion:
		r.Step4.Merge(*p)
	default:
		return fmt.Errorf("%w: unsupported step data %T", ErrUnknownStep, patch)
	}

	return nil
}

// Set replaces a step's sub-record with data, clearing fields data leaves nil.
func (r *FormRecord) Set(data StepData) error {
	var cleared FormRecord
	switch data.Step() {
	case StepPersonal:
		cleared.Step1 = PersonalDetails{}
	case StepNeeds:
		cleared.Step2 = Needs{}
	case StepCalculation:
		cleared.Step3 = Calculation{}
	case StepComplete:
		cleared.Step4 = Completion{}
	}

	if err := cleared.Apply(data); err != nil {
		return err
	}

	switch data.Step() {
	case StepPersonal:
		r.Step1 = cleared.Step1
	case StepNeeds:
		r.Step2 = cleared.Step2
	case StepCalculation:
		r.Step3 = cleared.Step3
	case StepComplete:
		r.Step4 = cleared.Step4
	}

	return nil
}

// StepData returns a copy of the sub-record for the given step.
func (r FormRecord) StepData(step Step) (StepData, error) {
	c := r.Clone()
	switch step {
	case StepPersonal:
		return c.Step1, nil
	case StepNeeds:
		return c.Step2, nil
	case StepCalculation:
		return c.Step3, nil
	case StepComplete:
		return c.Step4, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
}

// Clone returns a deep copy that shares no pointers with r.
func (r FormRecord) Clone() FormRecord {
	var c FormRecord
	c.Step1.Merge(r.Step1)
	c.Step2.Merge(r.Step2)
	c.Step3.Merge(r.Step3)
	c.Step4.Merge(r.Step4)
	return c
}

func (r FormRecord) CustomerName() string {
	if r.Step1.FullName == nil {
		return ""
	}
	return strings.TrimSpace(*r.Step1.FullName)
}

func (p *PersonalDetails) Merge(patch PersonalDetails) {
	mergePtr(&p.FullName, patch.FullName)
	mergePtr(&p.DateOfBirth, patch.DateOfBirth)
	mergePtr(&p.SpouseName, patch.SpouseName)
	mergePtr(&p.Address, patch.Address)
	mergePtr(&p.PhoneNumber, patch.PhoneNumber)
	mergePtr(&p.NumberOfChildren, patch.NumberOfChildren)
	mergePtr(&p.ChildrenAges, patch.ChildrenAges)
	mergePtr(&p.Occupation, patch.Occupation)
	mergePtr(&p.Age, patch.Age)
	mergePtr(&p.MonthlyIncome, patch.MonthlyIncome)
}

func (n *Needs) Merge(patch Needs) {
	mergePtr(&n.InsuranceNeeds, patch.InsuranceNeeds)
	mergePtr(&n.HealthCovers, patch.HealthCovers)
}

func (c *Calculation) Merge(patch Calculation) {
	mergePtr(&c.FixedMonthlyExpenses, patch.FixedMonthlyExpenses)
	mergePtr(&c.BankInterestRate, patch.BankInterestRate)
	mergePtr(&c.UnsecuredBankLoan, patch.UnsecuredBankLoan)
	mergePtr(&c.CashInHandInsurance, patch.CashInHandInsurance)
	mergePtr(&c.HLValue, patch.HLValue)
	mergePtr(&c.ActualHLValue, patch.ActualHLValue)
	mergePtr(&c.Completed, patch.Completed)
	mergePtr(&c.CompletedAt, patch.CompletedAt)
}

func (c *Completion) Merge(patch Completion) {
	mergePtr(&c.Completed, patch.Completed)
	mergePtr(&c.CompletedAt, patch.CompletedAt)
}

// Insurance returns the insurance needs group, treating nil as all false.
func (n Needs) Insurance() InsuranceNeeds {
	if n.InsuranceNeeds == nil {
		return InsuranceNeeds{}
	}
	return *n.InsuranceNeeds
}

// Health returns the health covers group, treating nil as all false.
func (n Needs) Health() HealthCovers {
	if n.HealthCovers == nil {
		return HealthCovers{}
	}
	return *n.HealthCovers
}

func (c Calculation) IsCompleted() bool {
	return c.Completed != nil && *c.Completed
}

func (c Completion) IsCompleted() bool {
	return c.Completed != nil && *c.Completed
}

func mergePtr[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	*dst = copyPtr(src)
}

func copyPtr[T any](src *T) *T {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
