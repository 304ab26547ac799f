package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fairshare/contracts/mq"
	"fairshare/internal/model"
	"fairshare/internal/storage"
)

// checkAssignee rejects a member that does not exist or belongs to another
// project. The store itself only enforces existence.
func checkAssignee(ctx context.Context, r storage.Reader, projectID, memberID int64) error {
	m, err := r.GetMember(ctx, memberID)
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("assignee %d does not exist: %w", memberID, model.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	if m.ProjectID != projectID {
		return fmt.Errorf("assignee %d belongs to project %d, not %d: %w",
			memberID, m.ProjectID, projectID, model.ErrInvalidInput)
	}
	return nil
}

// AddModule creates a module under projectID. memberID may be nil; an empty
// priority means model.DefaultPriority.
func (t *Tracker) AddModule(ctx context.Context, projectID int64, name string, memberID *int64, priority model.Priority) (id int64, err error) {
	ctx, done := t.observe(ctx, "add_module")
	defer func() { err = done(err) }()

	name, err = requireName("module", name)
	if err != nil {
		return 0, err
	}
	if priority == "" {
		priority = model.DefaultPriority
	}
	if !priority.Valid() {
		return 0, fmt.Errorf("priority %q: %w", priority, model.ErrInvalidInput)
	}

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetProject(ctx, projectID); err != nil {
			return err
		}
		if memberID != nil {
			if err := checkAssignee(ctx, tx, projectID, *memberID); err != nil {
				return err
			}
		}
		var err error
		id, err = tx.CreateModule(ctx, model.NewModule{
			ProjectID:        projectID,
			Name:             name,
			AssignedMemberID: memberID,
			Priority:         priority,
		})
		if err != nil {
			return err
		}
		return t.record(ctx, tx, mq.AggregateModule, id, mq.RoutingModuleCreated, mq.ModuleCreatedPayload{
			ModuleID:         id,
			ProjectID:        projectID,
			Name:             name,
			AssignedMemberID: memberID,
			Priority:         string(priority),
			TraceID:          traceID(ctx),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("add module to project %d: %w", projectID, err)
	}
	return id, nil
}

// EditModule applies a partial update. Fields left nil keep their value.
func (t *Tracker) EditModule(ctx context.Context, id int64, patch model.ModulePatch) (err error) {
	ctx, done := t.observe(ctx, "edit_module")
	defer func() { err = done(err) }()

	if err := t.editModule(ctx, id, patch); err != nil {
		return fmt.Errorf("edit module %d: %w", id, err)
	}
	return nil
}

// AssignModule moves the module to Assigned with memberID, replacing any
// previous assignee.
func (t *Tracker) AssignModule(ctx context.Context, id, memberID int64) (err error) {
	ctx, done := t.observe(ctx, "assign_module")
	defer func() { err = done(err) }()

	if err := t.editModule(ctx, id, model.ModulePatch{AssignedMemberID: &memberID}); err != nil {
		return fmt.Errorf("assign module %d: %w", id, err)
	}
	return nil
}

func (t *Tracker) UnassignModule(ctx context.Context, id int64) (err error) {
	ctx, done := t.observe(ctx, "unassign_module")
	defer func() { err = done(err) }()

	if err := t.editModule(ctx, id, model.ModulePatch{Unassign: true}); err != nil {
		return fmt.Errorf("unassign module %d: %w", id, err)
	}
	return nil
}

func (t *Tracker) editModule(ctx context.Context, id int64, patch model.ModulePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	return t.store.Update(ctx, func(tx storage.Tx) error {
		current, err := tx.GetModule(ctx, id)
		if err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		if patch.AssignedMemberID != nil {
			if err := checkAssignee(ctx, tx, current.ProjectID, *patch.AssignedMemberID); err != nil {
				return err
			}
		}
		if err := tx.UpdateModule(ctx, id, patch); err != nil {
			return err
		}
		next := current.Apply(patch)
		return t.record(ctx, tx, mq.AggregateModule, id, mq.RoutingModuleUpdated, mq.ModuleUpdatedPayload{
			ModuleID:         id,
			ProjectID:        next.ProjectID,
			Name:             next.Name,
			AssignedMemberID: next.AssignedMemberID,
			Priority:         string(next.Priority),
			TraceID:          traceID(ctx),
		})
	})
}

// CompleteModule marks the module complete. Completing a completed module is
// a no-op. There is no way back.
func (t *Tracker) CompleteModule(ctx context.Context, id int64) (err error) {
	ctx, done := t.observe(ctx, "complete_module")
	defer func() { err = done(err) }()

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		m, err := tx.GetModule(ctx, id)
		if err != nil {
			return err
		}
		changed, err := tx.CompleteModule(ctx, id)
		if err != nil || !changed {
			return err
		}
		return t.record(ctx, tx, mq.AggregateModule, id, mq.RoutingModuleCompleted,
			mq.ModuleCompletedPayload{ModuleID: id, ProjectID: m.ProjectID, TraceID: traceID(ctx)})
	})
	if err != nil {
		return fmt.Errorf("complete module %d: %w", id, err)
	}
	return nil
}

// DeleteModule removes module id from projectID together with its updates.
func (t *Tracker) DeleteModule(ctx context.Context, projectID, id int64) (err error) {
	ctx, done := t.observe(ctx, "delete_module")
	defer func() { err = done(err) }()

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteModule(ctx, projectID, id); err != nil {
			return err
		}
		return t.record(ctx, tx, mq.AggregateModule, id, mq.RoutingModuleDeleted,
			mq.ModuleDeletedPayload{ModuleID: id, ProjectID: projectID, TraceID: traceID(ctx)})
	})
	if err != nil {
		return fmt.Errorf("delete module %d of project %d: %w", id, projectID, err)
	}
	return nil
}

// AddUpdate appends a progress note. date is YYYY-MM-DD and is not checked
// against the clock.
func (t *Tracker) AddUpdate(ctx context.Context, moduleID int64, date, text string) (id int64, err error) {
	ctx, done := t.observe(ctx, "add_update")
	defer func() { err = done(err) }()

	d, err := model.ParseDate(date)
	if err != nil {
		return 0, fmt.Errorf("update date: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("update text is required: %w", model.ErrInvalidInput)
	}

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if id, err = tx.AppendUpdate(ctx, moduleID, d, text); err != nil {
			return err
		}
		return t.record(ctx, tx, mq.AggregateModule, moduleID, mq.RoutingModuleUpdateAdded, mq.ModuleUpdateAddedPayload{
			UpdateID: id,
			ModuleID: moduleID,
			Date:     d.String(),
			Text:     text,
			TraceID:  traceID(ctx),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("add update to module %d: %w", moduleID, err)
	}
	return id, nil
}
