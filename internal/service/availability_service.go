package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"schedulix/backend/config"
	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/model"
	"schedulix/backend/internal/repository"
	"schedulix/backend/internal/scheduling"
	"schedulix/backend/internal/tenant"
	pkgerrors "schedulix/backend/pkg/errors"
)

// ── availability template errors ──

var (
	ErrTemplateNotFound = pkgerrors.New(pkgerrors.KindNotFound, 25001, "Availability template not found")
	ErrTemplateOverlap  = pkgerrors.New(pkgerrors.KindConflict, 25002, "Time slot overlaps with existing slot")
	ErrTemplateVariant  = pkgerrors.New(pkgerrors.KindValidation, 25003, "Exactly one of day_of_week and specific_date is required")
)

// AvailabilityService manages the templates slots are generated from.
// Disabling a template never touches booked appointments.
type AvailabilityService interface {
	List(ctx context.Context, actor Actor, req *dto.TemplateListRequest) ([]dto.TemplateResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error)
	BulkCreate(ctx context.Context, actor Actor, req *dto.BulkCreateTemplateRequest) ([]dto.TemplateResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTemplateRequest) (*dto.TemplateResponse, error)
	Deactivate(ctx context.Context, actor Actor, id string) error
}

type availabilityService struct {
	cfg    *config.SchedulingConfig
	repo   *repository.Repository
	policy *policy
	logger *zap.Logger
}

// NewAvailabilityService creates an AvailabilityService.
func NewAvailabilityService(cfg *config.SchedulingConfig, repo *repository.Repository, logger *zap.Logger) AvailabilityService {
	return &availabilityService{
		cfg:    cfg,
		repo:   repo,
		policy: &policy{repo: repo, logger: logger},
		logger: logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *availabilityService) List(ctx context.Context, actor Actor, req *dto.TemplateListRequest) ([]dto.TemplateResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	doctorID := req.DoctorID
	if pr.Role == model.RoleDoctor {
		doctorID = pr.DoctorID
	}

	var rows []model.AvailabilityTemplate
	if req.Date != "" {
		if doctorID == "" {
			return nil, pkgerrors.Validation("doctor_id is required when date is given")
		}
		date, err := scheduling.ParseDate(req.Date, time.UTC)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		rows, err = s.repo.Template.ListForDate(ctx, actor.TenantID, doctorID, date)
		if err != nil {
			s.logger.Error("failed to list templates", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
			return nil, err
		}
		if rows, err = governing(rows, date, s.logger); err != nil {
			return nil, err
		}
	} else {
		rows, err = s.repo.Template.List(ctx, actor.TenantID, repository.TemplateFilter{
			DoctorID:        doctorID,
			IncludeInactive: req.IncludeInactive && pr.Role != model.RolePatient,
		})
		if err != nil {
			s.logger.Error("failed to list templates", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
			return nil, err
		}
	}

	result := make([]dto.TemplateResponse, 0, len(rows))
	for i := range rows {
		result = append(result, *toTemplateResponse(&rows[i]))
	}
	return result, nil
}

// governing keeps the rows whose templates win override resolution for date.
func governing(rows []model.AvailabilityTemplate, date time.Time, logger *zap.Logger) ([]model.AvailabilityTemplate, error) {
	templates, err := convertTemplates(rows, logger)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.AvailabilityTemplate, len(rows))
	for _, r := range rows {
		byID[r.TemplateID] = r
	}

	resolved := scheduling.Resolve(templates, date)
	out := make([]model.AvailabilityTemplate, 0, len(resolved))
	for _, t := range resolved {
		out = append(out, byID[t.ID])
	}
	return out, nil
}

// ────────────────────── Create ──────────────────────

func (s *availabilityService) Create(ctx context.Context, actor Actor, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	created, err := s.BulkCreate(ctx, actor, &dto.BulkCreateTemplateRequest{Templates: []dto.CreateTemplateRequest{*req}})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// BulkCreate validates every entry, then inserts all of them or none.
func (s *availabilityService) BulkCreate(ctx context.Context, actor Actor, req *dto.BulkCreateTemplateRequest) ([]dto.TemplateResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	rules, err := loadRules(ctx, s.repo, s.cfg, actor.TenantID, s.logger)
	if err != nil {
		return nil, err
	}

	rows := make([]model.AvailabilityTemplate, 0, len(req.Templates))
	byDoctor := make(map[string][]scheduling.Template)
	for i := range req.Templates {
		entry := &req.Templates[i]
		if !s.policy.canEditDoctor(pr, entry.DoctorID) {
			return nil, ErrForbidden
		}

		row, tpl, err := buildTemplate(entry, rules.slotMinutes)
		if err != nil {
			return nil, err
		}
		row.Stamp(actor.UserID)

		// overlaps inside the batch
		if overlapsAny(tpl, byDoctor[entry.DoctorID], "") {
			return nil, ErrTemplateOverlap
		}
		byDoctor[entry.DoctorID] = append(byDoctor[entry.DoctorID], tpl)
		rows = append(rows, row)
	}

	opts := repository.TxOptions{LockTimeout: s.cfg.LockTimeout}
	err = s.repo.Tx.InTx(ctx, opts, func(tx *repository.Repository) error {
		for doctorID, fresh := range byDoctor {
			if err := s.checkDoctor(ctx, tx, actor.TenantID, doctorID); err != nil {
				return err
			}
			existing, err := activeTemplates(ctx, tx, actor.TenantID, doctorID, s.logger)
			if err != nil {
				return err
			}
			for _, t := range fresh {
				if overlapsAny(t, existing, "") {
					return ErrTemplateOverlap
				}
			}
		}
		return tx.Template.BatchCreate(ctx, actor.TenantID, rows)
	})
	if err != nil {
		err = templateWriteError(err)
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("failed to create templates", zap.String("tenant_id", actor.TenantID.String()), zap.Error(err))
		}
		return nil, err
	}

	result := make([]dto.TemplateResponse, 0, len(rows))
	for i := range rows {
		result = append(result, *toTemplateResponse(&rows[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *availabilityService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTemplateRequest) (*dto.TemplateResponse, error) {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return nil, err
	}

	row, err := s.load(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.canEditDoctor(pr, row.DoctorID) {
		return nil, ErrForbidden
	}

	if req.StartTime != nil {
		row.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		row.EndTime = *req.EndTime
	}
	if req.SlotDuration != nil {
		row.SlotDuration = *req.SlotDuration
	}
	if req.ClearBreak {
		row.BreakStart, row.BreakEnd = nil, nil
	} else {
		if req.BreakStart != nil {
			row.BreakStart = req.BreakStart
		}
		if req.BreakEnd != nil {
			row.BreakEnd = req.BreakEnd
		}
	}
	if req.MaxBookings != nil {
		row.MaxBookings = *req.MaxBookings
	}
	if req.IsActive != nil {
		row.IsActive = *req.IsActive
	}
	row.UpdatedBy = &actor.UserID

	tpl, err := row.Template()
	if err != nil {
		return nil, err
	}

	if row.IsActive {
		existing, err := activeTemplates(ctx, s.repo, actor.TenantID, row.DoctorID, s.logger)
		if err != nil {
			return nil, err
		}
		if overlapsAny(tpl, existing, row.TemplateID) {
			return nil, ErrTemplateOverlap
		}
	}

	if err := s.repo.Template.Update(ctx, actor.TenantID, row); err != nil {
		err = templateWriteError(err)
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("failed to update template", zap.String("tenant_id", actor.TenantID.String()), zap.String("template_id", id), zap.Error(err))
		}
		return nil, err
	}
	return toTemplateResponse(row), nil
}

// ────────────────────── Deactivate ──────────────────────

func (s *availabilityService) Deactivate(ctx context.Context, actor Actor, id string) error {
	pr, err := s.policy.resolve(ctx, actor)
	if err != nil {
		return err
	}

	row, err := s.load(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if !s.policy.canEditDoctor(pr, row.DoctorID) {
		return ErrForbidden
	}

	if err := s.repo.Template.Deactivate(ctx, actor.TenantID, id, actor.UserID, row.Version); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return err
		}
		s.logger.Error("failed to deactivate template", zap.String("tenant_id", actor.TenantID.String()), zap.String("template_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── internal helpers ──

func (s *availabilityService) load(ctx context.Context, tid tenant.ID, id string) (*model.AvailabilityTemplate, error) {
	row, err := s.repo.Template.GetByID(ctx, tid, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("failed to load template", zap.String("tenant_id", tid.String()), zap.String("template_id", id), zap.Error(err))
		return nil, err
	}
	return row, nil
}

func (s *availabilityService) checkDoctor(ctx context.Context, repo *repository.Repository, tid tenant.ID, doctorID string) error {
	if _, err := repo.Doctor.GetByID(ctx, tid, doctorID); err != nil {
		if repository.IsNotFound(err) {
			return ErrDoctorNotFound
		}
		return err
	}
	return nil
}

func activeTemplates(ctx context.Context, repo *repository.Repository, tid tenant.ID, doctorID string, logger *zap.Logger) ([]scheduling.Template, error) {
	rows, err := repo.Template.List(ctx, tid, repository.TemplateFilter{DoctorID: doctorID})
	if err != nil {
		logger.Error("failed to list templates", zap.String("tenant_id", tid.String()), zap.String("doctor_id", doctorID), zap.Error(err))
		return nil, err
	}
	return convertTemplates(rows, logger)
}

// templateWriteError maps a CHECK constraint failure to the validation
// error the row would have failed with.
func templateWriteError(err error) error {
	if repository.IsCheckViolation(err) {
		return scheduling.ErrInvalidTemplate.Wrap(err)
	}
	return err
}

// buildTemplate converts a request into a storage row and the validated
// template it stands for.
func buildTemplate(req *dto.CreateTemplateRequest, defaultSlot int) (model.AvailabilityTemplate, scheduling.Template, error) {
	var variant scheduling.Variant
	switch {
	case req.DayOfWeek != nil && req.SpecificDate == nil:
		variant = scheduling.Recurring{Weekday: time.Weekday(*req.DayOfWeek)}
	case req.DayOfWeek == nil && req.SpecificDate != nil:
		date, err := scheduling.ParseDate(*req.SpecificDate, time.UTC)
		if err != nil {
			return model.AvailabilityTemplate{}, scheduling.Template{}, pkgerrors.Validation(err.Error())
		}
		variant = scheduling.DateOverride{Date: date}
	default:
		return model.AvailabilityTemplate{}, scheduling.Template{}, ErrTemplateVariant
	}

	slot := req.SlotDuration
	if slot == 0 {
		slot = defaultSlot
	}
	maxBookings := req.MaxBookings
	if maxBookings == 0 {
		maxBookings = 1
	}

	row := model.AvailabilityTemplate{
		DoctorID:     req.DoctorID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SlotDuration: slot,
		BreakStart:   req.BreakStart,
		BreakEnd:     req.BreakEnd,
		MaxBookings:  maxBookings,
		IsActive:     true,
		Version:      1,
	}
	row.SetVariant(variant)

	tpl, err := row.Template()
	if err != nil {
		return model.AvailabilityTemplate{}, scheduling.Template{}, err
	}
	return row, tpl, nil
}

// variantKey groups templates that compete for the same days.
func variantKey(v scheduling.Variant) string {
	switch v := v.(type) {
	case scheduling.Recurring:
		return "dow:" + strconv.Itoa(int(v.Weekday))
	case scheduling.DateOverride:
		return "date:" + v.Date.Format(scheduling.DateLayout)
	}
	return ""
}

// overlapsAny reports a window overlap with a template of the same variant
// key, ignoring the template with id skipID.
func overlapsAny(t scheduling.Template, others []scheduling.Template, skipID string) bool {
	key := variantKey(t.Variant)
	for _, o := range others {
		if skipID != "" && o.ID == skipID {
			continue
		}
		if variantKey(o.Variant) == key && t.Window.Overlaps(o.Window) {
			return true
		}
	}
	return false
}

func toTemplateResponse(t *model.AvailabilityTemplate) *dto.TemplateResponse {
	resp := &dto.TemplateResponse{
		ID:           t.TemplateID,
		DoctorID:     t.DoctorID,
		IsRecurring:  t.IsRecurring,
		StartTime:    clockString(t.StartTime),
		EndTime:      clockString(t.EndTime),
		SlotDuration: t.SlotDuration,
		MaxBookings:  t.MaxBookings,
		IsActive:     t.IsActive,
		Version:      t.Version,
		CreatedAt:    formatTime(t.CreatedAt),
		UpdatedAt:    formatTime(t.UpdatedAt),
	}
	if t.DayOfWeek != nil {
		dow := int(*t.DayOfWeek)
		resp.DayOfWeek = &dow
		resp.DayName = time.Weekday(dow).String()
	}
	if t.SpecificDate != nil {
		d := t.SpecificDate.Format(scheduling.DateLayout)
		resp.SpecificDate = &d
	}
	if t.BreakStart != nil {
		bs := clockString(*t.BreakStart)
		resp.BreakStart = &bs
	}
	if t.BreakEnd != nil {
		be := clockString(*t.BreakEnd)
		resp.BreakEnd = &be
	}
	return resp
}

// clockString normalizes "HH:MM:SS" from the database to "HH:MM".
func clockString(s string) string {
	c, err := scheduling.ParseClock(s)
	if err != nil {
		return s
	}
	return c.String()
}
