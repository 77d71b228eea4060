package types

import "time"

// FormSubmission is the finalized snapshot taken when the customer finishes
// the wizard, together with the exported PDF and a few headline fields the
// dashboard lists without decoding the snapshot.
type FormSubmission struct {
	ID       string     `db:"id" json:"id"`
	LinkID   string     `db:"link_id" json:"link_id"`
	UserID   string     `db:"user_id" json:"user_id"`
	FormData FormRecord `db:"form_data" json:"form_data"`
	PDFURL   *string    `db:"pdf_url" json:"pdf_url"`
	PDFPath  *string    `db:"pdf_path" json:"pdf_path"`

	CustomerName         *string  `db:"customer_name" json:"customer_name"`
	PhoneNumber          *string  `db:"phone_number" json:"phone_number"`
	MonthlyIncome        *float64 `db:"monthly_income" json:"monthly_income"`
	HumanLifeValue       *int64   `db:"human_life_value" json:"human_life_value"`
	ActualHumanLifeValue *int64   `db:"actual_human_life_value" json:"actual_human_life_value"`

	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// NewFormSubmission extracts the headline fields from the record.
func NewFormSubmission(linkID, userID string, record FormRecord, pdfURL, pdfPath string) *FormSubmission {
	record = record.Clone()

	s := &FormSubmission{
		LinkID:               linkID,
		UserID:               userID,
		FormData:             record,
		PDFURL:               trimmedOrNil(&pdfURL),
		PDFPath:              trimmedOrNil(&pdfPath),
		CustomerName:         trimmedOrNil(record.Step1.FullName),
		PhoneNumber:          trimmedOrNil(record.Step1.PhoneNumber),
		MonthlyIncome:        copyPtr(record.Step1.MonthlyIncome),
		HumanLifeValue:       copyPtr(record.Step3.HLValue),
		ActualHumanLifeValue: copyPtr(record.Step3.ActualHLValue),
	}

	return s
}
