package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"fairshare/internal/model"
	"fairshare/internal/storage"
	"fairshare/pkg/outbox"
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type tx struct {
	q      querier
	logger *zap.Logger
}

var _ storage.Tx = (*tx)(nil)

const moduleColumns = `m.id, m.project_id, m.name, m.assigned_member_id, COALESCE(mem.name, ''), m.completed, m.priority
FROM modules m
LEFT JOIN members mem ON mem.id = m.assigned_member_id`

func dateValue(d model.Date) time.Time {
	return d.In(time.UTC)
}

func scanProject(row pgx.Row) (model.Project, error) {
	var (
		p        model.Project
		deadline *time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &deadline); err != nil {
		return model.Project{}, err
	}
	if deadline != nil {
		d := model.DateOf(*deadline)
		p.Deadline = &d
	}
	return p, nil
}

func scanModule(row pgx.Row) (model.Module, error) {
	var (
		m        model.Module
		priority string
	)
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Name, &m.AssignedMemberID, &m.AssigneeName, &m.Completed, &priority); err != nil {
		return model.Module{}, err
	}
	m.Priority = model.Priority(priority)
	return m, nil
}

func scanUpdate(row pgx.Row) (model.Update, error) {
	var (
		u    model.Update
		date time.Time
	)
	if err := row.Scan(&u.ID, &u.ModuleID, &date, &u.Text); err != nil {
		return model.Update{}, err
	}
	u.Date = model.DateOf(date)
	return u, nil
}

// collect drains rows with scan. It always returns a non-nil slice on success.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *tx) GetProject(ctx context.Context, id int64) (model.Project, error) {
	p, err := scanProject(t.q.QueryRow(ctx, `SELECT id, name, deadline FROM projects WHERE id = $1`, id))
	if err != nil {
		return model.Project{}, mapError(fmt.Sprintf("get project %d", id), err)
	}
	return p, nil
}

func (t *tx) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := t.q.Query(ctx, `SELECT id, name, deadline FROM projects ORDER BY id`)
	if err != nil {
		t.logger.Error("Failed to list projects", zap.Error(err))
		return nil, mapError("list projects", err)
	}
	projects, err := collect(rows, scanProject)
	if err != nil {
		return nil, mapError("list projects", err)
	}
	return projects, nil
}

func scanMember(row pgx.Row) (model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.ProjectID, &m.Name)
	return m, err
}

func (t *tx) GetMember(ctx context.Context, id int64) (model.Member, error) {
	m, err := scanMember(t.q.QueryRow(ctx, `SELECT id, project_id, name FROM members WHERE id = $1`, id))
	if err != nil {
		return model.Member{}, mapError(fmt.Sprintf("get member %d", id), err)
	}
	return m, nil
}

func (t *tx) ListMembers(ctx context.Context, projectID int64) ([]model.Member, error) {
	rows, err := t.q.Query(ctx, `SELECT id, project_id, name FROM members WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		t.logger.Error("Failed to list members", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, mapError("list members", err)
	}
	members, err := collect(rows, scanMember)
	if err != nil {
		return nil, mapError("list members", err)
	}
	return members, nil
}

func (t *tx) GetModule(ctx context.Context, id int64) (model.Module, error) {
	m, err := scanModule(t.q.QueryRow(ctx, `SELECT `+moduleColumns+` WHERE m.id = $1`, id))
	if err != nil {
		return model.Module{}, mapError(fmt.Sprintf("get module %d", id), err)
	}
	return m, nil
}

func (t *tx) ListModules(ctx context.Context, projectID int64) ([]model.Module, error) {
	rows, err := t.q.Query(ctx, `SELECT `+moduleColumns+` WHERE m.project_id = $1 ORDER BY m.id`, projectID)
	if err != nil {
		t.logger.Error("Failed to list modules", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, mapError("list modules", err)
	}
	modules, err := collect(rows, scanModule)
	if err != nil {
		return nil, mapError("list modules", err)
	}
	return modules, nil
}

func (t *tx) ListUpdates(ctx context.Context, moduleID int64, order storage.Order) ([]model.Update, error) {
	dir := "ASC"
	if order == storage.Desc {
		dir = "DESC"
	}
	rows, err := t.q.Query(ctx, `SELECT id, module_id, update_date, update_text FROM module_updates
WHERE module_id = $1 ORDER BY update_date `+dir+`, id ASC`, moduleID)
	if err != nil {
		t.logger.Error("Failed to list updates", zap.Int64("module_id", moduleID), zap.Error(err))
		return nil, mapError("list updates", err)
	}
	updates, err := collect(rows, scanUpdate)
	if err != nil {
		return nil, mapError("list updates", err)
	}
	return updates, nil
}

func (t *tx) ListProjectUpdates(ctx context.Context, projectID int64) ([]model.Update, error) {
	rows, err := t.q.Query(ctx, `SELECT u.id, u.module_id, u.update_date, u.update_text FROM module_updates u
JOIN modules m ON m.id = u.module_id
WHERE m.project_id = $1 ORDER BY u.update_date ASC, u.id ASC`, projectID)
	if err != nil {
		t.logger.Error("Failed to list project updates", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, mapError("list project updates", err)
	}
	updates, err := collect(rows, scanUpdate)
	if err != nil {
		return nil, mapError("list project updates", err)
	}
	return updates, nil
}

// lockParent takes a key-share lock on the parent row so the cascade that
// would remove it waits for this transaction.
func (t *tx) lockParent(ctx context.Context, table string, id int64) error {
	var one int
	err := t.q.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = $1 FOR KEY SHARE`, id).Scan(&one)
	if err != nil {
		return mapError(fmt.Sprintf("%s %d", strings.TrimSuffix(table, "s"), id), err)
	}
	return nil
}

func (t *tx) CreateProject(ctx context.Context, name string, deadline *model.Date) (int64, error) {
	t.logger.Debug("Inserting project", zap.String("name", name))

	var raw *time.Time
	if deadline != nil {
		v := dateValue(*deadline)
		raw = &v
	}
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO projects (name, deadline) VALUES ($1, $2) RETURNING id`, name, raw,
	).Scan(&id)
	if err != nil {
		t.logger.Error("Failed to insert project", zap.Error(err))
		return 0, mapError("create project", err)
	}

	t.logger.Info("Project inserted successfully", zap.Int64("id", id))
	return id, nil
}

func (t *tx) DeleteProject(ctx context.Context, id int64) error {
	t.logger.Debug("Deleting project", zap.Int64("id", id))
	return t.deleteOne(ctx, "project", `DELETE FROM projects WHERE id = $1`, id)
}

func (t *tx) deleteOne(ctx context.Context, what, query string, args ...any) error {
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		t.logger.Error("Failed to delete "+what, zap.Error(err))
		return mapError("delete "+what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s: %w", what, model.ErrNotFound)
	}
	t.logger.Info("Row deleted successfully", zap.String("entity", what), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func (t *tx) CreateMember(ctx context.Context, projectID int64, name string) (int64, error) {
	t.logger.Debug("Inserting member", zap.Int64("project_id", projectID), zap.String("name", name))

	if err := t.lockParent(ctx, "projects", projectID); err != nil {
		return 0, err
	}
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO members (name, project_id) VALUES ($1, $2) RETURNING id`, name, projectID,
	).Scan(&id)
	if err != nil {
		t.logger.Error("Failed to insert member", zap.Error(err))
		return 0, mapError("create member", err)
	}

	t.logger.Info("Member inserted successfully", zap.Int64("id", id), zap.Int64("project_id", projectID))
	return id, nil
}

func (t *tx) CreateModule(ctx context.Context, m model.NewModule) (int64, error) {
	t.logger.Debug("Inserting module",
		zap.Int64("project_id", m.ProjectID),
		zap.String("name", m.Name),
		zap.String("priority", string(m.Priority)),
	)

	if err := t.lockParent(ctx, "projects", m.ProjectID); err != nil {
		return 0, err
	}
	priority := m.Priority
	if priority == "" {
		priority = model.DefaultPriority
	}
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO modules (name, project_id, assigned_member_id, completed, priority)
VALUES ($1, $2, $3, FALSE, $4) RETURNING id`,
		m.Name, m.ProjectID, m.AssignedMemberID, string(priority),
	).Scan(&id)
	if err != nil {
		t.logger.Error("Failed to insert module", zap.Error(err))
		return 0, mapError("create module", err)
	}

	t.logger.Info("Module inserted successfully", zap.Int64("id", id), zap.Int64("project_id", m.ProjectID))
	return id, nil
}

func (t *tx) UpdateModule(ctx context.Context, id int64, patch model.ModulePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Empty() {
		_, err := t.GetModule(ctx, id)
		return err
	}

	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if patch.Name != nil {
		sets = append(sets, "name = "+arg(strings.TrimSpace(*patch.Name)))
	}
	if patch.AssignedMemberID != nil {
		sets = append(sets, "assigned_member_id = "+arg(*patch.AssignedMemberID))
	}
	if patch.Unassign {
		sets = append(sets, "assigned_member_id = NULL")
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = "+arg(string(*patch.Priority)))
	}
	where := arg(id)

	t.logger.Debug("Updating module", zap.Int64("id", id), zap.Strings("fields", sets))
	return t.updateOne(ctx, "update module", `UPDATE modules SET `+strings.Join(sets, ", ")+` WHERE id = `+where, args...)
}

// CompleteModule relies on READ COMMITTED re-evaluating the WHERE clause
// after a concurrent completion commits, so the loser affects no row.
func (t *tx) CompleteModule(ctx context.Context, id int64) (bool, error) {
	t.logger.Debug("Completing module", zap.Int64("id", id))

	tag, err := t.q.Exec(ctx, `UPDATE modules SET completed = TRUE WHERE id = $1 AND NOT completed`, id)
	if err != nil {
		t.logger.Error("Failed to complete module", zap.Int64("id", id), zap.Error(err))
		return false, mapError("complete module", err)
	}
	if tag.RowsAffected() > 0 {
		t.logger.Info("Module completed successfully", zap.Int64("id", id))
		return true, nil
	}

	var one int
	err = t.q.QueryRow(ctx, `SELECT 1 FROM modules WHERE id = $1`, id).Scan(&one)
	if err != nil {
		return false, mapError(fmt.Sprintf("module %d", id), err)
	}
	return false, nil
}

func (t *tx) updateOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := t.q.Exec(ctx, query, args...)
	if err != nil {
		t.logger.Error("Failed to "+op, zap.Error(err))
		return mapError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	t.logger.Info("Module updated successfully", zap.String("op", op))
	return nil
}

func (t *tx) DeleteModule(ctx context.Context, projectID, id int64) error {
	t.logger.Debug("Deleting module", zap.Int64("project_id", projectID), zap.Int64("id", id))
	return t.deleteOne(ctx, "module", `DELETE FROM modules WHERE id = $1 AND project_id = $2`, id, projectID)
}

func (t *tx) AppendUpdate(ctx context.Context, moduleID int64, date model.Date, text string) (int64, error) {
	t.logger.Debug("Inserting module update", zap.Int64("module_id", moduleID), zap.Stringer("date", date))

	if err := t.lockParent(ctx, "modules", moduleID); err != nil {
		return 0, err
	}
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO module_updates (module_id, update_date, update_text) VALUES ($1, $2, $3) RETURNING id`,
		moduleID, dateValue(date), text,
	).Scan(&id)
	if err != nil {
		t.logger.Error("Failed to insert module update", zap.Error(err))
		return 0, mapError("append update", err)
	}

	t.logger.Info("Module update inserted successfully", zap.Int64("id", id), zap.Int64("module_id", moduleID))
	return id, nil
}

func (t *tx) RecordEvent(ctx context.Context, e outbox.Event) (int64, error) {
	status := e.Status
	if status == "" {
		status = outbox.StatusPending
	}
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.AggregateType, e.AggregateID, e.RoutingKey, string(e.Payload), status,
	).Scan(&id)
	if err != nil {
		t.logger.Error("Failed to record outbox event", zap.String("routing_key", e.RoutingKey), zap.Error(err))
		return 0, mapError("record event", err)
	}

	t.logger.Debug("Outbox event recorded", zap.Int64("event_id", id), zap.String("routing_key", e.RoutingKey))
	return id, nil
}
