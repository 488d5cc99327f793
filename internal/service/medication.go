package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/medireminder/internal/audit"
	"github.com/vcscsvcscs/medireminder/internal/metrics"
	"github.com/vcscsvcscs/medireminder/internal/repository"
	"github.com/vcscsvcscs/medireminder/internal/scheduler"
	"github.com/vcscsvcscs/medireminder/pkg/model"
	"go.uber.org/zap"
)

// DefaultManualInventory is used when a manual entry gives no pill count
const DefaultManualInventory = 30

// DefaultIcon is the icon assigned to new medications
const DefaultIcon = "pill"

// Palette holds the colours assigned to new medications
var Palette = []string{"blue", "emerald", "rose", "amber", "violet"}

// MedicationInput is a manual create or edit request
type MedicationInput struct {
	Name           string
	Dosage         string
	Description    string
	FrequencyType  string
	FrequencyValue int
	Notes          string
	Inventory      *int
	// LookupDetails asks the assistant for a corrected name and advice
	LookupDetails bool
}

// CreateResult is a created medication plus any assistant notice
type CreateResult struct {
	Medication model.Medication `json:"medication"`
	Fallback   bool             `json:"fallback"`
	Notice     string           `json:"notice,omitempty"`
}

// VoiceResult is a medication created from a voice instruction
type VoiceResult struct {
	Transcript string           `json:"transcript"`
	Medication model.Medication `json:"medication"`
}

// MedicationService handles medication management business logic
type MedicationService struct {
	state     *State
	assistant *AssistantService
	audit     *audit.Logger
	metrics   *metrics.Metrics
	flows     *FlowGuard
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
	color func() string
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(state *State, assistant *AssistantService, auditLogger *audit.Logger, m *metrics.Metrics, logger *zap.Logger) *MedicationService {
	s := &MedicationService{
		state:     state,
		assistant: assistant,
		audit:     auditLogger,
		metrics:   m,
		flows:     NewFlowGuard(),
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		color:     func() string { return Palette[rand.IntN(len(Palette))] },
	}
	s.refreshGauges(state.Medications())
	return s
}

// List returns the medications in stored order
func (s *MedicationService) List(ctx context.Context) []model.Medication {
	return s.state.Medications()
}

// Get returns one medication by id
func (s *MedicationService) Get(ctx context.Context, id string) (model.Medication, error) {
	meds := s.state.Medications()
	if i := indexOf(meds, id); i >= 0 {
		return meds[i], nil
	}
	return model.Medication{}, fmt.Errorf("medication %s: %w", id, ErrNotFound)
}

// Due returns the medications that may be logged now
func (s *MedicationService) Due(ctx context.Context) []model.Medication {
	now := s.now()
	due := []model.Medication{}
	for _, med := range s.state.Medications() {
		if scheduler.IsDue(med, now) {
			due = append(due, med)
		}
	}
	return due
}

// History returns dose history newest first. A limit of zero or less
// returns every entry.
func (s *MedicationService) History(ctx context.Context, limit int) []model.HistoryLog {
	history := s.state.Snapshot().History
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history
}

// Names returns the names of all tracked medications
func (s *MedicationService) Names() []string {
	meds := s.state.Medications()
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	return names
}

// Create adds a medication from a manual entry. With LookupDetails set the
// assistant corrects the name and supplies advice; assistant failures fall
// back to the entered name and default advice.
func (s *MedicationService) Create(ctx context.Context, flowID string, in MedicationInput) (*CreateResult, error) {
	ft, err := normalizeInput(&in)
	if err != nil {
		return nil, err
	}

	inventory := DefaultManualInventory
	if in.Inventory != nil {
		inventory = max(*in.Inventory, 0)
	}

	now := s.now()
	med := s.newMedication(now)
	med.Name = in.Name
	med.Dosage = in.Dosage
	med.Description = in.Description
	med.FrequencyType = ft
	med.FrequencyValue = in.FrequencyValue
	med.Notes = in.Notes
	med.Inventory = inventory

	result := &CreateResult{}
	var ticket *flowTicket
	if in.LookupDetails {
		key, gen := s.beginFlow(flowID)
		ticket = &flowTicket{key: key, gen: gen}
		outcome := s.assistant.DetailLookup(ctx, in.Name, s.Names())
		if !s.flows.Current(key, gen) {
			s.logger.Info("discarding assistant result for cancelled flow", zap.String("flow_id", key))
			return nil, ErrFlowCancelled
		}

		med.Name = outcome.Result.CorrectedName
		if med.Description == "" {
			med.Description = outcome.Result.Description
		}
		med.Advice = outcome.Result.Advice
		result.Fallback = outcome.Fallback
		result.Notice = outcome.Notice
	}

	if err := s.insert(ctx, med, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("medication added successfully",
		zap.String("medication_id", med.ID),
		zap.String("name", med.Name),
		zap.Bool("assistant_fallback", result.Fallback),
	)

	result.Medication = med
	return result, nil
}

// AssistCreate adds a medication from a free-text instruction. The result is
// discarded with ErrFlowCancelled if the flow was cancelled meanwhile.
func (s *MedicationService) AssistCreate(ctx context.Context, flowID, instruction string) (model.Medication, error) {
	key, gen := s.beginFlow(flowID)

	draft, err := s.assistant.ParseInstruction(ctx, instruction, s.Names())
	if !s.flows.Current(key, gen) {
		s.logger.Info("discarding assistant result for cancelled flow", zap.String("flow_id", key))
		return model.Medication{}, ErrFlowCancelled
	}
	if err != nil {
		s.flows.Finish(key, gen)
		return model.Medication{}, err
	}

	med := s.fromDraft(draft, s.now())
	if err := s.insert(ctx, med, &flowTicket{key: key, gen: gen}); err != nil {
		return model.Medication{}, err
	}

	s.logger.Info("medication added from instruction",
		zap.String("medication_id", med.ID),
		zap.String("name", med.Name),
	)
	return med, nil
}

// VoiceCreate transcribes a recorded instruction and adds the medication
func (s *MedicationService) VoiceCreate(ctx context.Context, flowID string, audio io.Reader, contentType string) (*VoiceResult, error) {
	transcript, err := s.assistant.Transcribe(ctx, audio, contentType)
	if err != nil {
		return nil, err
	}

	med, err := s.AssistCreate(ctx, flowID, transcript)
	if err != nil {
		return nil, err
	}
	return &VoiceResult{Transcript: transcript, Medication: med}, nil
}

// CancelFlow discards any outstanding assistant result for the flow
func (s *MedicationService) CancelFlow(flowID string) bool {
	cancelled := s.flows.Cancel(flowKey(flowID))
	s.logger.Info("flow cancelled", zap.String("flow_id", flowID), zap.Bool("outstanding", cancelled))
	return cancelled
}

// Update edits a medication in place. The id, advice, description, colour,
// icon, start date and next dose are kept; a nil inventory keeps the stock.
func (s *MedicationService) Update(ctx context.Context, id string, in MedicationInput) (model.Medication, error) {
	ft, err := normalizeInput(&in)
	if err != nil {
		return model.Medication{}, err
	}

	// An outstanding detail refresh for this medication is now stale
	s.flows.Cancel(medicationKey(id))

	var updated model.Medication
	err = s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		updated = l.Medications[i]
		updated.Name = in.Name
		updated.Dosage = in.Dosage
		updated.FrequencyType = ft
		updated.FrequencyValue = in.FrequencyValue
		if in.Notes != "" {
			updated.Notes = in.Notes
		}
		if in.Inventory != nil {
			updated.Inventory = max(*in.Inventory, 0)
		}
		l.Medications[i] = updated
		return ledgerMedications, nil
	})
	if err != nil {
		return s.fail("update", id, err)
	}

	s.audit.Log(ctx, audit.OperationUpdate, audit.ResourceMedication, id, updated.Name)
	s.refreshGauges(s.state.Medications())
	s.logger.Info("medication updated successfully",
		zap.String("medication_id", id),
		zap.String("name", updated.Name),
	)
	return updated, nil
}

// Delete removes a medication. History entries keep their name snapshot.
func (s *MedicationService) Delete(ctx context.Context, id string) error {
	s.flows.Cancel(medicationKey(id))

	var name string
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		name = l.Medications[i].Name
		l.Medications = append(l.Medications[:i:i], l.Medications[i+1:]...)
		return ledgerMedications, nil
	})
	if err != nil {
		_, err = s.fail("delete", id, err)
		return err
	}

	s.audit.Log(ctx, audit.OperationDelete, audit.ResourceMedication, id, name)
	s.refreshGauges(s.state.Medications())
	s.logger.Info("medication deleted successfully", zap.String("medication_id", id))
	return nil
}

// Take logs a dose as taken and updates inventory, schedule and stats
func (s *MedicationService) Take(ctx context.Context, id string) (*scheduler.TakeResult, error) {
	now := s.now()
	var result scheduler.TakeResult
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		result = scheduler.RecordTake(l.Medications[i], l.History, l.Stats, s.newID(), now)
		l.Medications[i] = result.Medication
		l.History = result.History
		l.Stats = result.Stats
		return ledgerMedications | ledgerHistory | ledgerStats, nil
	})
	if err != nil {
		_, err = s.fail("take", id, err)
		return nil, err
	}

	s.metrics.ObserveDose(string(model.HistoryStatusTaken), result.PointsEarned)
	s.refreshGauges(s.state.Medications())
	s.audit.Log(ctx, audit.OperationTake, audit.ResourceHistory, result.Log.ID, result.Medication.Name)

	s.logger.Info("dose taken",
		zap.String("medication_id", id),
		zap.Int("points", result.PointsEarned),
		zap.Int("inventory", result.Medication.Inventory),
		zap.Timep("next_dose", result.Medication.NextDose),
	)
	if result.LeveledUp {
		s.logger.Info("level up", zap.Int("level", result.Stats.Level))
	}
	if result.LowStock || result.OutOfStock {
		s.logger.Warn("medication stock is low",
			zap.String("medication_id", id),
			zap.Int("inventory", result.Medication.Inventory),
		)
	}
	return &result, nil
}

// Skip logs a dose as skipped and moves the schedule forward
func (s *MedicationService) Skip(ctx context.Context, id string) (*scheduler.SkipResult, error) {
	now := s.now()
	var result scheduler.SkipResult
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		result = scheduler.RecordSkip(l.Medications[i], l.History, s.newID(), now)
		l.Medications[i] = result.Medication
		l.History = result.History
		return ledgerMedications | ledgerHistory, nil
	})
	if err != nil {
		_, err = s.fail("skip", id, err)
		return nil, err
	}

	s.metrics.ObserveDose(string(model.HistoryStatusSkipped), 0)
	s.audit.Log(ctx, audit.OperationSkip, audit.ResourceHistory, result.Log.ID, result.Medication.Name)
	s.logger.Info("dose skipped",
		zap.String("medication_id", id),
		zap.Timep("next_dose", result.Medication.NextDose),
	)
	return &result, nil
}

// Snooze makes the medication due again after the given minutes
func (s *MedicationService) Snooze(ctx context.Context, id string, minutes int) (model.Medication, error) {
	if minutes < 1 {
		return model.Medication{}, fmt.Errorf("%w: minutes must be positive", ErrInvalidInput)
	}
	if minutes > model.MaxSnoozeMinutes {
		return model.Medication{}, fmt.Errorf("%w: minutes must be at most %d", ErrInvalidInput, model.MaxSnoozeMinutes)
	}

	now := s.now()
	var updated model.Medication
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		updated = scheduler.Snooze(l.Medications[i], minutes, now)
		l.Medications[i] = updated
		return ledgerMedications, nil
	})
	if err != nil {
		return s.fail("snooze", id, err)
	}

	s.audit.Log(ctx, audit.OperationSnooze, audit.ResourceMedication, id, fmt.Sprintf("%d minutes", minutes))
	s.logger.Info("medication snoozed",
		zap.String("medication_id", id),
		zap.Int("minutes", minutes),
	)
	return updated, nil
}

// RefreshDetails asks the assistant for a corrected name, description and
// advice for an existing medication. An edit or delete during the call
// discards the result.
func (s *MedicationService) RefreshDetails(ctx context.Context, id string) (*CreateResult, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.assistant.Available() {
		return nil, ErrAssistantUnavailable
	}

	key := medicationKey(id)
	gen := s.flows.Begin(key)
	others := make([]string, 0)
	for _, n := range s.Names() {
		if n != current.Name {
			others = append(others, n)
		}
	}
	outcome := s.assistant.DetailLookup(ctx, current.Name, others)

	var updated model.Medication
	err = s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		if !s.flows.Current(key, gen) {
			return 0, ErrFlowCancelled
		}
		i := indexOf(l.Medications, id)
		if i < 0 {
			return 0, fmt.Errorf("medication %s: %w", id, ErrNotFound)
		}
		updated = l.Medications[i]
		if !outcome.Fallback {
			updated.Name = outcome.Result.CorrectedName
			updated.Description = outcome.Result.Description
			updated.Advice = outcome.Result.Advice
		}
		l.Medications[i] = updated
		return ledgerMedications, nil
	})
	s.flows.Finish(key, gen)
	if err != nil {
		_, err = s.fail("refresh details", id, err)
		return nil, err
	}

	if !outcome.Fallback {
		s.audit.Log(ctx, audit.OperationUpdate, audit.ResourceMedication, id, "details refreshed")
	}
	return &CreateResult{Medication: updated, Fallback: outcome.Fallback, Notice: outcome.Notice}, nil
}

func (s *MedicationService) insert(ctx context.Context, med model.Medication, ticket *flowTicket) error {
	err := s.state.update(ctx, func(l *repository.Ledgers) (ledgerSet, error) {
		// Checked under the state lock so a cancel cannot slip in before the append
		if ticket != nil && !s.flows.Current(ticket.key, ticket.gen) {
			return 0, ErrFlowCancelled
		}
		l.Medications = append(l.Medications, med)
		return ledgerMedications, nil
	})
	if ticket != nil {
		s.flows.Finish(ticket.key, ticket.gen)
	}
	if errors.Is(err, ErrFlowCancelled) {
		s.logger.Info("discarding assistant result for cancelled flow", zap.String("flow_id", ticket.key))
		return ErrFlowCancelled
	}
	if err != nil {
		s.logger.Error("failed to add medication",
			zap.Error(err),
			zap.String("medication_name", med.Name),
		)
		return fmt.Errorf("failed to add medication: %w", err)
	}

	s.audit.Log(ctx, audit.OperationCreate, audit.ResourceMedication, med.ID, med.Name)
	s.refreshGauges(s.state.Medications())
	return nil
}

// flowTicket pins an insert to the flow generation that produced it
type flowTicket struct {
	key string
	gen uint64
}

// newMedication returns a medication due immediately with display defaults
func (s *MedicationService) newMedication(now time.Time) model.Medication {
	next := now
	return model.Medication{
		ID:             s.newID(),
		FrequencyType:  model.FrequencyDaily,
		FrequencyValue: 1,
		StartDate:      now,
		NextDose:       &next,
		Color:          s.color(),
		Icon:           DefaultIcon,
	}
}

func (s *MedicationService) fromDraft(d *model.MedicationDraft, now time.Time) model.Medication {
	med := s.newMedication(now)
	med.Name = d.Name
	med.Description = d.Description
	med.Dosage = d.Dosage
	med.FrequencyType = d.FrequencyType
	med.FrequencyValue = d.FrequencyValue
	med.Notes = d.Notes
	med.Inventory = d.Inventory
	med.Advice = d.Advice
	med.Normalize()
	return med
}

func (s *MedicationService) fail(op, id string, err error) (model.Medication, error) {
	s.logger.Error("medication operation failed",
		zap.Error(err),
		zap.String("operation", op),
		zap.String("medication_id", id),
	)
	return model.Medication{}, fmt.Errorf("failed to %s medication: %w", op, err)
}

func (s *MedicationService) refreshGauges(meds []model.Medication) {
	low := 0
	for _, m := range meds {
		if m.Inventory <= scheduler.LowStockThreshold {
			low++
		}
	}
	s.metrics.SetInventory(len(meds), low)
}

// beginFlow starts a generation for a client flow id, or an anonymous one
func (s *MedicationService) beginFlow(flowID string) (string, uint64) {
	if flowID == "" {
		flowID = uuid.New().String()
	}
	key := flowKey(flowID)
	return key, s.flows.Begin(key)
}

func flowKey(flowID string) string { return "flow:" + flowID }

func medicationKey(id string) string { return "medication:" + id }

// normalizeInput trims and validates a manual entry. An empty frequency type
// means DAILY, and the frequency value is clamped to the cadence's range.
func normalizeInput(in *MedicationInput) (model.FrequencyType, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	in.Description = strings.TrimSpace(in.Description)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.Name == "" {
		return "", fmt.Errorf("%w: medication name is required", ErrInvalidInput)
	}

	ft := model.FrequencyDaily
	if strings.TrimSpace(in.FrequencyType) != "" {
		parsed, ok := model.ParseFrequencyType(in.FrequencyType)
		if !ok {
			return "", fmt.Errorf("%w: unknown frequency type %q", ErrInvalidInput, in.FrequencyType)
		}
		ft = parsed
	}
	in.FrequencyValue = model.ClampFrequencyValue(ft, in.FrequencyValue)
	if in.Dosage == "" {
		in.Dosage = DefaultDraftDosage
	}
	return ft, nil
}
