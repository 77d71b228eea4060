package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"needanalysis/internal/calc"
	"needanalysis/internal/formstate"
	"needanalysis/internal/pdf"
	"needanalysis/internal/storage"
	"needanalysis/internal/validate"
	"needanalysis/pkg/types"
)

const (
	msgFixFields    = "Please fix the highlighted fields."
	msgExportFailed = "We could not export your need analysis. Please try again."
	msgSubmitted    = "Your need analysis has been submitted. Thank you!"
	msgNotSaved     = "We could not save your answers. Please shorten your entries and try again."
)

type wizardStepNav struct {
	Number  int
	Label   string
	Path    string
	Current bool
	Done    bool
}

type wizardPageData struct {
	types.BasePageData
	LinkID   string
	Step     types.Step
	Steps    []wizardStepNav
	Errors   map[string]string
	Warning  string
	BackPath string
}

type step1PageData struct {
	wizardPageData
	Values validate.Step1Input
}

type step2PageData struct {
	wizardPageData
	Insurance   []types.Flag
	Health      []types.Flag
	MaxCovers   int
	CoverErrors []string
}

type step3PageData struct {
	wizardPageData
	Values validate.Step3Input
	Result calc.Result
}

type step4PageData struct {
	wizardPageData
	Record     types.FormRecord
	Insurance  []types.Flag
	Health     []types.Flag
	Submission *types.FormSubmission
	PDFPath    string
}

// wizardState opens the session's form store backed by the link's cookie.
func (s *Service) wizardState(w http.ResponseWriter, r *http.Request, link *types.FormLink) *formstate.Store {
	return formstate.New(s.formPersister(w, r, link.ID), s.logger.WithField("link_id", link.ID))
}

// firstIncompleteStep is the furthest step a session may open.
func firstIncompleteStep(record types.FormRecord) types.Step {
	switch {
	case validate.PersonalDetails(record.Step1).Err() != nil:
		return types.StepPersonal
	case !validate.HasAnySelection(record.Step2):
		return types.StepNeeds
	case !record.Step3.IsCompleted():
		return types.StepCalculation
	}
	return types.StepComplete
}

func (s *Service) newWizardPage(link *types.FormLink, step types.Step, record types.FormRecord) wizardPageData {
	reachable := firstIncompleteStep(record)

	steps := make([]wizardStepNav, 0, len(types.AllSteps))
	for _, st := range types.AllSteps {
		steps = append(steps, wizardStepNav{
			Number:  st.Number(),
			Label:   st.Label(),
			Path:    st.Path(link.ID),
			Current: st == step,
			Done:    st.Number() < reachable.Number(),
		})
	}

	page := wizardPageData{
		BasePageData: types.BasePageData{Title: step.Label()},
		LinkID:       link.ID,
		Step:         step,
		Steps:        steps,
	}
	if step != types.StepPersonal {
		page.BackPath = step.Previous().Path(link.ID)
	}

	return page
}

// guardStep redirects to the first unfinished step when the requested one is
// not reachable yet.
func (s *Service) guardStep(w http.ResponseWriter, r *http.Request, link *types.FormLink, step types.Step, record types.FormRecord) bool {
	reachable := firstIncompleteStep(record)
	if step.Number() <= reachable.Number() {
		return true
	}

	http.Redirect(w, r, reachable.Path(link.ID), http.StatusSeeOther)
	return false
}

func (s *Service) wizardLink(w http.ResponseWriter, r *http.Request) (*types.FormLink, bool) {
	link, err := s.linkFromContext(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("wizard handler reached without a form link")
		s.internalServerError(w)
		return nil, false
	}
	return link, true
}

// handleGetFormStart is the entry point of an emailed link. A browser without
// a saved copy picks up whatever was already synced for the link.
func (s *Service) handleGetFormStart(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	state := s.wizardState(w, r, link)
	if !state.Restored() {
		s.hydrate(r.Context(), state, link)
	}

	http.Redirect(w, r, firstIncompleteStep(state.AllData()).Path(link.ID), http.StatusSeeOther)
}

func (s *Service) hydrate(ctx context.Context, state *formstate.Store, link *types.FormLink) {
	form, err := s.formRepo.FormByLinkID(ctx, link.ID)
	if err != nil {
		if !errors.Is(err, types.ErrFormNotFound) {
			s.logger.WithError(err).WithField("link_id", link.ID).Warn("failed to load remote form copy")
		}
		return
	}

	state.Replace(form.Record())
	s.persisted(state, link)
}

// persisted reports whether the last change reached the browser copy. Between
// requests that copy is the whole session, so a failed save must stop the
// wizard from moving on.
func (s *Service) persisted(state *formstate.Store, link *types.FormLink) bool {
	if err := state.PersistErr(); err != nil {
		s.logger.WithError(err).WithField("link_id", link.ID).Error("form data did not fit the browser copy")
		return false
	}
	return true
}

func (s *Service) handleGetStep1(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	record := s.wizardState(w, r, link).AllData()

	data := &step1PageData{
		wizardPageData: s.newWizardPage(link, types.StepPersonal, record),
		Values:         step1Values(record.Step1),
	}

	s.renderWizard(w, r, http.StatusOK, "page.step1", data)
}

func (s *Service) handlePostStep1(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	err := r.ParseForm()
	if err != nil {
		s.logger.WithError(err).Error("failed to parse form")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	var input validate.Step1Input
	err = decoder.Decode(&input, r.Form)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode form onto step 1 input")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	state := s.wizardState(w, r, link)

	details, errs := validate.Step1(input)
	if len(errs) > 0 {
		data := &step1PageData{
			wizardPageData: s.newWizardPage(link, types.StepPersonal, state.AllData()),
			Values:         input,
		}
		data.Errors = errs.Map()
		data.Error = msgFixFields

		s.renderWizard(w, r, http.StatusUnprocessableEntity, "page.step1", data)
		return
	}

	state.SetStepData(details)
	if !s.persisted(state, link) {
		data := &step1PageData{
			wizardPageData: s.newWizardPage(link, types.StepPersonal, state.AllData()),
			Values:         input,
		}
		data.Error = msgNotSaved

		s.renderWizard(w, r, http.StatusInternalServerError, "page.step1", data)
		return
	}

	s.syncStep(r.Context(), link, details)

	http.Redirect(w, r, types.StepNeeds.Path(link.ID), http.StatusSeeOther)
}

func (s *Service) handleGetStep2(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	record := s.wizardState(w, r, link).AllData()
	if !s.guardStep(w, r, link, types.StepNeeds, record) {
		return
	}

	s.renderWizard(w, r, http.StatusOK, "page.step2", s.step2Page(link, record, record.Step2))
}

type step2Input struct {
	InsuranceNeeds []string `form:"insuranceNeeds"`
	HealthCovers   []string `form:"healthCovers"`
}

func (s *Service) handlePostStep2(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	err := r.ParseForm()
	if err != nil {
		s.logger.WithError(err).Error("failed to parse form")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	var input step2Input
	err = decoder.Decode(&input, r.Form)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode form onto step 2 input")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	insurance := types.InsuranceNeedsFromKeys(input.InsuranceNeeds)
	health := types.HealthCoversFromKeys(input.HealthCovers)
	needs := types.Needs{InsuranceNeeds: &insurance, HealthCovers: &health}

	state := s.wizardState(w, r, link)
	record := state.AllData()
	if !s.guardStep(w, r, link, types.StepNeeds, record) {
		return
	}

	if errs := validate.Step2(needs); len(errs) > 0 {
		data := s.step2Page(link, record, needs)
		for _, fe := range errs {
			data.CoverErrors = append(data.CoverErrors, fe.Message)
		}

		s.renderWizard(w, r, http.StatusUnprocessableEntity, "page.step2", data)
		return
	}

	if !validate.HasAnySelection(needs) {
		data := s.step2Page(link, record, needs)
		data.Warning = validate.MsgNothingSelected

		s.renderWizard(w, r, http.StatusUnprocessableEntity, "page.step2", data)
		return
	}

	state.UpdateStepData(needs)
	if !s.persisted(state, link) {
		data := s.step2Page(link, record, needs)
		data.Error = msgNotSaved

		s.renderWizard(w, r, http.StatusInternalServerError, "page.step2", data)
		return
	}

	s.syncStep(r.Context(), link, needs)

	http.Redirect(w, r, types.StepCalculation.Path(link.ID), http.StatusSeeOther)
}

func (s *Service) step2Page(link *types.FormLink, record types.FormRecord, needs types.Needs) *step2PageData {
	return &step2PageData{
		wizardPageData: s.newWizardPage(link, types.StepNeeds, record),
		Insurance:      needs.Insurance().Flags(),
		Health:         needs.Health().Flags(),
		MaxCovers:      validate.MaxHealthCovers,
	}
}

func (s *Service) handleGetStep3(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	record := s.wizardState(w, r, link).AllData()
	if !s.guardStep(w, r, link, types.StepCalculation, record) {
		return
	}

	data := &step3PageData{
		wizardPageData: s.newWizardPage(link, types.StepCalculation, record),
		Values:         step3Values(record.Step3),
		Result:         calc.Compute(calc.InputsFrom(record.Step3)),
	}

	s.renderWizard(w, r, http.StatusOK, "page.step3", data)
}

func (s *Service) handlePostStep3(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	err := r.ParseForm()
	if err != nil {
		s.logger.WithError(err).Error("failed to parse form")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	var input validate.Step3Input
	err = decoder.Decode(&input, r.Form)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode form onto step 3 input")
		http.Error(w, "invalid form payload", http.StatusBadRequest)
		return
	}

	state := s.wizardState(w, r, link)
	record := state.AllData()
	if !s.guardStep(w, r, link, types.StepCalculation, record) {
		return
	}

	calculation, errs := validate.Step3(input)
	result := calc.Compute(calc.InputsFrom(calculation))

	if len(errs) > 0 {
		data := &step3PageData{
			wizardPageData: s.newWizardPage(link, types.StepCalculation, record),
			Values:         input,
			Result:         result,
		}
		data.Errors = errs.Map()
		data.Error = msgFixFields

		s.renderWizard(w, r, http.StatusUnprocessableEntity, "page.step3", data)
		return
	}

	completed := true
	completedAt := s.now().UTC()
	calculation.HLValue = &result.HLValue
	calculation.ActualHLValue = &result.ActualHLValue
	calculation.Completed = &completed
	calculation.CompletedAt = &completedAt

	state.UpdateStepData(calculation)
	if !s.persisted(state, link) {
		data := &step3PageData{
			wizardPageData: s.newWizardPage(link, types.StepCalculation, record),
			Values:         input,
			Result:         result,
		}
		data.Error = msgNotSaved

		s.renderWizard(w, r, http.StatusInternalServerError, "page.step3", data)
		return
	}

	s.syncStep(r.Context(), link, calculation)

	http.Redirect(w, r, types.StepComplete.Path(link.ID), http.StatusSeeOther)
}

func (s *Service) handleGetStep4(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	record := s.wizardState(w, r, link).AllData()
	if !s.guardStep(w, r, link, types.StepComplete, record) {
		return
	}

	data := s.step4Page(link, record)
	data.Notice, data.Error = flash(r)

	submission, err := s.submissionRepo.LatestSubmissionByLink(r.Context(), link.ID)
	switch {
	case err == nil:
		data.Submission = submission
	case !errors.Is(err, types.ErrSubmissionNotFound):
		s.logger.WithError(err).WithField("link_id", link.ID).Warn("failed to load latest submission")
	}

	s.renderWizard(w, r, http.StatusOK, "page.step4", data)
}

// handlePostStep4 finishes the wizard: export the PDF, store it and record the
// submission. Any failure leaves the session unfinished so the customer can
// retry with the same button.
func (s *Service) handlePostStep4(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	state := s.wizardState(w, r, link)
	record := state.AllData()
	if !s.guardStep(w, r, link, types.StepComplete, record) {
		return
	}

	submission, err := s.exportSubmission(r.Context(), link, record)
	if err != nil {
		s.logger.WithError(err).WithField("link_id", link.ID).Error("failed to export need analysis")

		data := s.step4Page(link, record)
		data.Error = msgExportFailed
		s.renderWizard(w, r, http.StatusBadGateway, "page.step4", data)
		return
	}

	completed := true
	completedAt := s.now().UTC()
	completion := types.Completion{Completed: &completed, CompletedAt: &completedAt}

	state.UpdateStepData(completion)
	s.syncStep(r.Context(), link, completion)

	s.logger.WithField("link_id", link.ID).WithField("submission_id", submission.ID).Info("need analysis submitted")

	s.redirectWithNotice(w, r, types.StepComplete.Path(link.ID), flashSubmitted)
}

func (s *Service) exportSubmission(ctx context.Context, link *types.FormLink, record types.FormRecord) (*types.FormSubmission, error) {
	now := s.now()

	var buf bytes.Buffer
	err := pdf.Render(&buf, record, pdf.Options{GeneratedAt: now})
	if err != nil {
		return nil, err
	}

	key := storage.SubmissionKey(link.ID, pdf.FileName(record.CustomerName(), now), now)
	url, err := s.objects.Upload(ctx, key, buf.Bytes(), storage.ContentTypePDF)
	if err != nil {
		return nil, err
	}

	submission := types.NewFormSubmission(link.ID, link.UserID, record, url, key)
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		s.discardUpload(ctx, link.ID, key)
		return nil, err
	}

	return submission, nil
}

// discardUpload removes a file whose submission row was never written. A file
// an earlier submission of the link still points at is left alone.
func (s *Service) discardUpload(ctx context.Context, linkID, key string) {
	entry := s.logger.WithField("link_id", linkID).WithField("key", key)

	latest, err := s.submissionRepo.LatestSubmissionByLink(ctx, linkID)
	switch {
	case err == nil:
		if latest.PDFPath != nil && *latest.PDFPath == key {
			return
		}
	case !errors.Is(err, types.ErrSubmissionNotFound):
		entry.WithError(err).Warn("keeping uploaded pdf, could not check earlier submissions")
		return
	}

	err = s.objects.Delete(ctx, key)
	if err != nil {
		entry.WithError(err).Error("failed to delete orphaned pdf")
	}
}

func (s *Service) step4Page(link *types.FormLink, record types.FormRecord) *step4PageData {
	return &step4PageData{
		wizardPageData: s.newWizardPage(link, types.StepComplete, record),
		Record:         record,
		Insurance:      record.Step2.Insurance().Flags(),
		Health:         record.Step2.Health().Flags(),
		PDFPath:        fmt.Sprintf("/form/%s/pdf", link.ID),
	}
}

func (s *Service) handleGetFormPDF(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	record := s.wizardState(w, r, link).AllData()
	if !s.guardStep(w, r, link, types.StepComplete, record) {
		return
	}

	now := s.now()

	var buf bytes.Buffer
	err := pdf.Render(&buf, record, pdf.Options{GeneratedAt: now})
	if err != nil {
		s.logger.WithError(err).WithField("link_id", link.ID).Error("failed to render pdf")
		s.redirectWithError(w, r, types.StepComplete.Path(link.ID), flashExportFailed)
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypePDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.FileName(record.CustomerName(), now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Service) handlePostRestart(w http.ResponseWriter, r *http.Request) {
	link, ok := s.wizardLink(w, r)
	if !ok {
		return
	}

	s.wizardState(w, r, link).Reset()

	http.Redirect(w, r, types.StepPersonal.Path(link.ID), http.StatusSeeOther)
}

func (s *Service) renderWizard(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	err := s.renderTemplateStatus(w, r, status, name, data)
	if err != nil {
		s.logger.WithError(err).WithField("template", name).Error("failed to render wizard page")
		s.internalServerError(w)
	}
}

func step1Values(p types.PersonalDetails) validate.Step1Input {
	in := validate.Step1Input{
		FullName:         deref(p.FullName),
		SpouseName:       deref(p.SpouseName),
		Address:          deref(p.Address),
		PhoneNumber:      deref(p.PhoneNumber),
		NumberOfChildren: formatInt(p.NumberOfChildren),
		ChildrenAges:     deref(p.ChildrenAges),
		Occupation:       deref(p.Occupation),
		Age:              formatInt(p.Age),
		MonthlyIncome:    formatFloat(p.MonthlyIncome),
	}
	if p.DateOfBirth != nil {
		in.DateOfBirth = p.DateOfBirth.String()
	}
	return in
}

func step3Values(c types.Calculation) validate.Step3Input {
	return validate.Step3Input{
		FixedMonthlyExpenses: formatFloat(c.FixedMonthlyExpenses),
		BankInterestRate:     formatFloat(c.BankInterestRate),
		UnsecuredBankLoan:    formatFloat(c.UnsecuredBankLoan),
		CashInHandInsurance:  formatFloat(c.CashInHandInsurance),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
