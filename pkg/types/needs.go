package types

// Flag is a single checkbox of the needs step as shown in templates and the PDF.
type Flag struct {
	Key     string
	Label   string
	Checked bool
}

const (
	NeedDependentCostOfLiving = "dependentCostOfLiving"
	NeedHigherEducation       = "higherEducation"
	NeedLongTermSavings       = "longTermSavings"
	NeedShortTermSavings      = "shortTermSavings"
	NeedPensionFund           = "pensionFund"

	CoverDailyHospitalization = "dailyHospitalization"
	CoverSurgery              = "surgeryCover"
	CoverHospitalBill         = "hospitalBillCover"
	CoverCriticalIllness      = "criticalIllness"
)

func (n InsuranceNeeds) Flags() []Flag {
	return []Flag{
		{Key: NeedDependentCostOfLiving, Label: "Dependent cost of living", Checked: n.DependentCostOfLiving},
		{Key: NeedHigherEducation, Label: "Higher education", Checked: n.HigherEducation},
		{Key: NeedLongTermSavings, Label: "Long-term savings", Checked: n.LongTermSavings},
		{Key: NeedShortTermSavings, Label: "Short-term savings", Checked: n.ShortTermSavings},
		{Key: NeedPensionFund, Label: "Pension fund", Checked: n.PensionFund},
	}
}

func (h HealthCovers) Flags() []Flag {
	return []Flag{
		{Key: CoverDailyHospitalization, Label: "Daily hospitalization", Checked: h.DailyHospitalization},
		{Key: CoverSurgery, Label: "Surgery cover", Checked: h.SurgeryCover},
		{Key: CoverHospitalBill, Label: "Hospital bill cover", Checked: h.HospitalBillCover},
		{Key: CoverCriticalIllness, Label: "Critical illness", Checked: h.CriticalIllness},
	}
}

// SelectedKeys lists the keys of the checked needs in declared order.
func (n InsuranceNeeds) SelectedKeys() []string {
	return checkedKeys(n.Flags())
}

// SelectedKeys lists the keys of the checked covers in declared order.
func (h HealthCovers) SelectedKeys() []string {
	return checkedKeys(h.Flags())
}

func (h HealthCovers) SelectedCount() int {
	return len(h.SelectedKeys())
}

// InsuranceNeedsFromKeys is the inverse of SelectedKeys. Unknown keys are ignored.
func InsuranceNeedsFromKeys(keys []string) InsuranceNeeds {
	var n InsuranceNeeds
	for _, key := range keys {
		switch key {
		case NeedDependentCostOfLiving:
			n.DependentCostOfLiving = true
		case NeedHigherEducation:
			n.HigherEducation = true
		case NeedLongTermSavings:
			n.LongTermSavings = true
		case NeedShortTermSavings:
			n.ShortTermSavings = true
		case NeedPensionFund:
			n.PensionFund = true
		}
	}
	return n
}

// HealthCoversFromKeys is the inverse of SelectedKeys. Unknown keys are ignored.
func HealthCoversFromKeys(keys []string) HealthCovers {
	var h HealthCovers
	for _, key := range keys {
		switch key {
		case CoverDailyHospitalization:
			h.DailyHospitalization = true
		case CoverSurgery:
			h.SurgeryCover = true
		case CoverHospitalBill:
			h.HospitalBillCover = true
		case CoverCriticalIllness:
			h.CriticalIllness = true
		}
	}
	return h
}

func checkedKeys(flags []Flag) []string {
	keys := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.Checked {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
