package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/upande/sprayplan/services/api/erp"
)

// Submission states. Every failure is terminal for the attempt; the caller
// resubmits the form to retry.
const (
	StateIdle       = "idle"
	StateValidating = "validating"
	StateBlocked    = "blocked"
	StateCreating   = "creating"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
)

const genericCreateError = "work order creation failed"

// WorkOrderForm is the assembled spray plan submission.
type WorkOrderForm struct {
	Greenhouse    string        `json:"greenhouse"`
	Variety       string        `json:"variety"`
	Targets       []string      `json:"targets"`
	Stages        []string      `json:"stages"`
	Sections      []string      `json:"sections"`
	SprayType     string        `json:"spray_type"`
	Kit           string        `json:"kit"`
	Scope         string        `json:"scope"`
	ScopeDetails  string        `json:"scope_details"`
	BOM           string        `json:"bom"`
	WaterPH       float64       `json:"water_ph"`
	WaterHardness float64       `json:"water_hardness"`
	WaterVolume   float64       `json:"water_volume"`
	Area          float64       `json:"area"`
	SprayTeam     string        `json:"spray_team"`
	Chemicals     []ChemicalRow `json:"chemicals"`
}

// Validate checks form completeness ahead of the remote guideline check.
// All problems collapse into a single aggregate error.
func (f *WorkOrderForm) Validate() error {
	var problems []string
	if f.Greenhouse == "" {
		problems = append(problems, "greenhouse")
	}
	if len(f.Targets) == 0 {
		problems = append(problems, "at least one target")
	}
	if len(f.Stages) == 0 {
		problems = append(problems, "at least one active stage")
	}
	if len(f.Sections) == 0 {
		problems = append(problems, "at least one active plant section")
	}
	if f.SprayType == "" {
		problems = append(problems, "spray type")
	}
	if f.Kit == "" {
		problems = append(problems, "kit")
	}
	if f.Scope == "" {
		problems = append(problems, "scope")
	}
	if f.BOM == "" {
		problems = append(problems, "BOM")
	}
	if f.WaterPH <= 0 {
		problems = append(problems, "water pH")
	}
	if f.WaterHardness <= 0 {
		problems = append(problems, "water hardness")
	}
	if len(problems) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(problems, ", "))
	}
	if len(f.Chemicals) == 0 {
		return errors.New("at least one chemical is required")
	}
	return ValidateForSubmission(f.Chemicals)
}

// Payload shapes the form for the ERP work-order endpoints.
func (f *WorkOrderForm) Payload() erp.WorkOrderPayload {
	chemicals := make([]erp.WorkOrderChemical, 0, len(f.Chemicals))
	for _, row := range f.Chemicals {
		chemicals = append(chemicals, erp.WorkOrderChemical{
			Chemical:        row.Name,
			ApplicationRate: row.Rate,
			UOM:             row.UOM,
			SourceWarehouse: row.SourceWarehouse,
		})
	}
	return erp.WorkOrderPayload{
		Type:          "Application Floor Plan",
		Greenhouse:    f.Greenhouse,
		Variety:       f.Variety,
		Targets:       f.Targets,
		SprayType:     f.SprayType,
		Kit:           f.Kit,
		Scope:         f.Scope,
		ScopeDetails:  f.ScopeDetails,
		ProductionBOM: f.BOM,
		Qty:           1,
		WaterPH:       f.WaterPH,
		WaterHardness: f.WaterHardness,
		Chemicals:     chemicals,
		WaterVolume:   f.WaterVolume,
		Area:          f.Area,
		SprayTeam:     f.SprayTeam,
	}
}

// GuidelineValidator runs the remote chemical-combination guideline check.
type GuidelineValidator interface {
	ValidateGuidelines(ctx context.Context, payload erp.WorkOrderPayload) (erp.GuidelineResult, error)
}

// WorkOrderCreator calls the remote work-order creation endpoint.
type WorkOrderCreator interface {
	CreateWorkOrder(ctx context.Context, payload erp.WorkOrderPayload) (erp.WorkOrderResult, error)
}

// SubmissionResult reports how far a submission attempt got.
type SubmissionResult struct {
	State              string   `json:"state"`
	Errors             []string `json:"errors,omitempty"`
	Message            string   `json:"message,omitempty"`
	WorkOrderName      string   `json:"work_order_name,omitempty"`
	RedirectPath       string   `json:"redirect_path,omitempty"`
	GuidelinesBypassed bool     `json:"guidelines_bypassed,omitempty"`
}

// Assembler orchestrates the submission path:
// Idle -> Validating -> Blocked | Creating -> Succeeded | Failed.
// A bypass moves a blocked form straight to Creating, tagging the outcome.
type Assembler struct {
	validator GuidelineValidator
	creator   WorkOrderCreator
}

// NewAssembler wires the assembler to its remote collaborators.
func NewAssembler(validator GuidelineValidator, creator WorkOrderCreator) *Assembler {
	return &Assembler{validator: validator, creator: creator}
}

// Submit runs one submission attempt. Never retries: every failure is
// terminal and the caller must resubmit.
func (a *Assembler) Submit(ctx context.Context, form *WorkOrderForm, bypassGuidelines bool) SubmissionResult {
	if err := form.Validate(); err != nil {
		return SubmissionResult{State: StateFailed, Message: err.Error()}
	}

	payload := form.Payload()

	if !bypassGuidelines {
		verdict, err := a.validator.ValidateGuidelines(ctx, payload)
		if err != nil {
			return SubmissionResult{
				State:   StateFailed,
				Message: fmt.Sprintf("guideline validation failed: %v", err),
			}
		}
		if !verdict.Valid {
			return SubmissionResult{State: StateBlocked, Errors: verdict.Errors}
		}
	}

	created, err := a.creator.CreateWorkOrder(ctx, payload)
	if err != nil {
		return SubmissionResult{
			State:              StateFailed,
			Message:            fmt.Sprintf("%s: %v", genericCreateError, err),
			GuidelinesBypassed: bypassGuidelines,
		}
	}
	if created.Status != "success" {
		message := created.Message
		if message == "" {
			message = genericCreateError
		}
		return SubmissionResult{
			State:              StateFailed,
			Message:            message,
			GuidelinesBypassed: bypassGuidelines,
		}
	}

	return SubmissionResult{
		State:              StateSucceeded,
		WorkOrderName:      created.WorkOrderName,
		RedirectPath:       "/app/work-order/" + created.WorkOrderName,
		GuidelinesBypassed: bypassGuidelines,
	}
}
