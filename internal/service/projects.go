package service

import (
	"context"
	"fmt"
	"strings"

	"fairshare/contracts/mq"
	"fairshare/internal/model"
	"fairshare/internal/storage"
)

func requireName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s name is required: %w", kind, model.ErrInvalidInput)
	}
	return name, nil
}

// parseDeadline accepts an empty string as "no deadline".
func parseDeadline(raw string) (*model.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("deadline: %w", err)
	}
	return &d, nil
}

// CreateProject creates a project. deadline is YYYY-MM-DD or empty.
func (t *Tracker) CreateProject(ctx context.Context, name, deadline string) (id int64, err error) {
	ctx, done := t.observe(ctx, "create_project")
	defer func() { err = done(err) }()

	name, err = requireName("project", name)
	if err != nil {
		return 0, err
	}
	due, err := parseDeadline(deadline)
	if err != nil {
		return 0, err
	}

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if id, err = tx.CreateProject(ctx, name, due); err != nil {
			return err
		}
		payload := mq.ProjectCreatedPayload{ProjectID: id, Name: name, TraceID: traceID(ctx)}
		if due != nil {
			payload.Deadline = due.String()
		}
		return t.record(ctx, tx, mq.AggregateProject, id, mq.RoutingProjectCreated, payload)
	})
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

// DeleteProject removes the project and, through the store's cascade, its
// members, modules and updates.
func (t *Tracker) DeleteProject(ctx context.Context, id int64) (err error) {
	ctx, done := t.observe(ctx, "delete_project")
	defer func() { err = done(err) }()

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.DeleteProject(ctx, id); err != nil {
			return err
		}
		return t.record(ctx, tx, mq.AggregateProject, id, mq.RoutingProjectDeleted,
			mq.ProjectDeletedPayload{ProjectID: id, TraceID: traceID(ctx)})
	})
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	return nil
}

func (t *Tracker) AddMember(ctx context.Context, projectID int64, name string) (id int64, err error) {
	ctx, done := t.observe(ctx, "add_member")
	defer func() { err = done(err) }()

	name, err = requireName("member", name)
	if err != nil {
		return 0, err
	}

	err = t.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if id, err = tx.CreateMember(ctx, projectID, name); err != nil {
			return err
		}
		return t.record(ctx, tx, mq.AggregateMember, id, mq.RoutingMemberAdded,
			mq.MemberAddedPayload{MemberID: id, ProjectID: projectID, Name: name, TraceID: traceID(ctx)})
	})
	if err != nil {
		return 0, fmt.Errorf("add member to project %d: %w", projectID, err)
	}
	return id, nil
}
