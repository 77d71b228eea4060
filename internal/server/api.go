package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"needanalysis/internal/calc"
	"needanalysis/internal/validate"
	"needanalysis/pkg/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxAPIBodyBytes = 1 << 20

var errInvalidRequest = errors.New("invalid request")

type apiResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Fields  validate.FieldErrors `json:"fields,omitempty"`
}

type createLinkRequest struct {
	UserID      string `json:"user_id"`
	ExpiryHours int    `json:"expiry_hours"`
}

type createLinkResponse struct {
	Success bool   `json:"success"`
	LinkID  string `json:"linkId"`
	FormURL string `json:"formUrl"`
}

type getFormResponse struct {
	Success  bool              `json:"success"`
	LinkData *types.FormLink   `json:"linkData"`
	FormData *types.FormRecord `json:"formData"`
}

type saveStepRequest struct {
	Step   string          `json:"step"`
	Data   json.RawMessage `json:"data"`
	UserID string          `json:"user_id"`
}

type saveStepResponse struct {
	Success bool           `json:"success"`
	Data    types.StepData `json:"data"`
}

type createSubmissionRequest struct {
	FormData types.FormRecord `json:"formData"`
	PDFURL   string           `json:"pdfUrl"`
	PDFPath  string           `json:"pdfPath"`
	UserID   string           `json:"userId"`
	LinkID   string           `json:"linkId"`
}

type createSubmissionResponse struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submissionId"`
}

type calculateResponse struct {
	calc.Result
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Service) handleAPICreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	// user_id is optional; when sent it must name the signed-in advisor.
	if req.UserID != "" && req.UserID != userID {
		if _, err := uuid.Parse(req.UserID); err != nil {
			s.writeAPIError(w, fmt.Errorf("%w: user_id must be a uuid", errInvalidRequest))
			return
		}
		writeJSON(w, http.StatusForbidden, apiResponse{Error: "links can only be created for the signed-in advisor"})
		return
	}

	link, err := s.createLink(r.Context(), userID, req.ExpiryHours)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createLinkResponse{
		Success: true,
		LinkID:  link.ID,
		FormURL: s.formURL(link.ID),
	})
}

func (s *Service) handleAPIGetForm(w http.ResponseWriter, r *http.Request) {
	link, err := s.resolveLink(r.Context(), r.PathValue("linkID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	resp := getFormResponse{Success: true, LinkData: link}

	form, err := s.formRepo.FormByLinkID(r.Context(), link.ID)
	switch {
	case err == nil:
		record := form.Record()
		resp.FormData = &record
	case !errors.Is(err, types.ErrFormNotFound):
		s.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleAPISaveStep(w http.ResponseWriter, r *http.Request) {
	link, err := s.resolveLink(r.Context(), r.PathValue("linkID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	var req saveStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	step, err := types.ParseStep(req.Step)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	data, err := s.decodeStepData(step, req.Data)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	if err := s.saveStep(r.Context(), link, step, data, req.UserID); err != nil {
		s.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, saveStepResponse{Success: true, Data: data})
}

// decodeStepData parses the step's JSON and applies the server-side checks.
// Personal text is cleaned and length-limited so a stored row always fits the
// wizard's cookie copy. The health cover rules are left to the wizard; the
// calculation bounds are enforced here and the life values are recomputed.
func (s *Service) decodeStepData(step types.Step, raw json.RawMessage) (types.StepData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: data is required", errInvalidRequest)
	}

	switch step {
	case types.StepPersonal:
		var d types.PersonalDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}

		d = validate.CleanPersonalDetails(d)
		if errs := validate.TextLengths(d); len(errs) > 0 {
			return nil, errs
		}
		return d, nil

	case types.StepNeeds:
		var d types.Needs
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		return d, nil

	case types.StepCalculation:
		var d types.Calculation
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}

		if errs := validate.Calculation(d); len(errs) > 0 {
			return nil, errs
		}

		result := calc.Compute(calc.InputsFrom(d))
		if (d.HLValue != nil && *d.HLValue != result.HLValue) || (d.ActualHLValue != nil && *d.ActualHLValue != result.ActualHLValue) {
			s.logger.WithFields(logrus.Fields{
				"client_hlv":        d.HLValue,
				"client_actual_hlv": d.ActualHLValue,
				"hlv":               result.HLValue,
				"actual_hlv":        result.ActualHLValue,
			}).Warn("client life values disagree with the inputs, using recomputed values")
		}
		d.HLValue = &result.HLValue
		d.ActualHLValue = &result.ActualHLValue

		return d, nil

	case types.StepComplete:
		var d types.Completion
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
		}
		return d, nil
	}

	return nil, fmt.Errorf("%w: %q", types.ErrUnknownStep, step)
}

func (s *Service) handleAPICreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeAPIError(w, err)
		return
	}

	link, err := s.resolveLink(r.Context(), req.LinkID)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = link.UserID
	}

	submission := types.NewFormSubmission(link.ID, userID, req.FormData, req.PDFURL, req.PDFPath)
	if err := s.submissionRepo.CreateSubmission(r.Context(), submission); err != nil {
		s.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSubmissionResponse{Success: true, SubmissionID: submission.ID})
}

// handleAPICalculate backs the live totals on the calculation page. It never
// fails on bad input: unusable values count as absent.
func (s *Service) handleAPICalculate(w http.ResponseWriter, r *http.Request) {
	var input validate.Step3Input
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeAPIError(w, err)
		return
	}

	calculation, errs := validate.Step3(input)

	resp := calculateResponse{Result: calc.Compute(calc.InputsFrom(calculation))}
	if len(errs) > 0 {
		resp.Errors = errs.Map()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) writeAPIError(w http.ResponseWriter, err error) {
	var fieldErrs validate.FieldErrors

	switch {
	case errors.As(err, &fieldErrs):
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: msgFixFields, Fields: fieldErrs})
	case errors.Is(err, types.ErrLinkNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{Error: "invalid link"})
	case errors.Is(err, types.ErrLinkExpired):
		writeJSON(w, http.StatusGone, apiResponse{Error: "link expired"})
	case errors.Is(err, types.ErrMustStartFromStep1):
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: "must start from step 1"})
	case errors.Is(err, types.ErrUnknownStep), errors.Is(err, errInvalidRequest):
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: err.Error()})
	default:
		s.logger.WithError(err).Error("api request failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "internal server error"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxAPIBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed json: %v", errInvalidRequest, err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
