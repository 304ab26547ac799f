package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"fairshare/internal/model"
	"fairshare/internal/storage"
	"fairshare/pkg/outbox"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tx serves both storage.Tx and storage.Reader. View hands it out over the
// query_only read handle.
type tx struct {
	q      querier
	logger *zap.Logger
}

var _ storage.Tx = (*tx)(nil)

const moduleColumns = `m.id, m.project_id, m.name, m.assigned_member_id, COALESCE(mem.name, ''), m.completed, m.priority
FROM modules m
LEFT JOIN members mem ON mem.id = m.assigned_member_id`

type scanner interface {
	Scan(dest ...any) error
}

func (t *tx) scanProject(row scanner) (model.Project, error) {
	var (
		p        model.Project
		deadline sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &deadline); err != nil {
		return model.Project{}, err
	}
	if deadline.Valid && strings.TrimSpace(deadline.String) != "" {
		d, err := model.ParseDate(deadline.String)
		if err != nil {
			t.logger.Debug("Ignoring unparsable project deadline",
				zap.Int64("project_id", p.ID),
				zap.String("deadline", deadline.String),
			)
		} else {
			p.Deadline = &d
		}
	}
	return p, nil
}

func scanModule(row scanner) (model.Module, error) {
	var (
		m         model.Module
		member    sql.NullInt64
		completed int
		priority  string
	)
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Name, &member, &m.AssigneeName, &completed, &priority); err != nil {
		return model.Module{}, err
	}
	if member.Valid {
		id := member.Int64
		m.AssignedMemberID = &id
	}
	m.Completed = completed != 0
	m.Priority = model.Priority(priority)
	return m, nil
}

func (t *tx) scanUpdate(row scanner) (model.Update, error) {
	var (
		u    model.Update
		date string
	)
	if err := row.Scan(&u.ID, &u.ModuleID, &date, &u.Text); err != nil {
		return model.Update{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		t.logger.Debug("Ignoring unparsable update date",
			zap.Int64("update_id", u.ID),
			zap.String("date", date),
		)
	} else {
		u.Date = d
	}
	return u, nil
}

func (t *tx) GetProject(ctx context.Context, id int64) (model.Project, error) {
	row := t.q.QueryRowContext(ctx, `SELECT id, name, deadline FROM projects WHERE id = ?`, id)
	p, err := t.scanProject(row)
	if err != nil {
		return model.Project{}, mapError(fmt.Sprintf("get project %d", id), err)
	}
	return p, nil
}

func (t *tx) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT id, name, deadline FROM projects ORDER BY id`)
	if err != nil {
		t.logger.Error("Failed to list projects", zap.Error(err))
		return nil, mapError("list projects", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := t.scanProject(rows)
		if err != nil {
			return nil, mapError("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list projects", err)
	}
	return projects, nil
}

func (t *tx) GetMember(ctx context.Context, id int64) (model.Member, error) {
	var m model.Member
	err := t.q.QueryRowContext(ctx,
		`SELECT id, project_id, name FROM members WHERE id = ?`, id,
	).Scan(&m.ID, &m.ProjectID, &m.Name)
	if err != nil {
		return model.Member{}, mapError(fmt.Sprintf("get member %d", id), err)
	}
	return m, nil
}

func (t *tx) ListMembers(ctx context.Context, projectID int64) ([]model.Member, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT id, project_id, name FROM members WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		t.logger.Error("Failed to list members", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, mapError("list members", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name); err != nil {
			return nil, mapError("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list members", err)
	}
	return members, nil
}

func (t *tx) GetModule(ctx context.Context, id int64) (model.Module, error) {
	m, err := scanModule(t.q.QueryRowContext(ctx, `SELECT `+moduleColumns+` WHERE m.id = ?`, id))
	if err != nil {
		return model.Module{}, mapError(fmt.Sprintf("get module %d", id), err)
	}
	return m, nil
}

func (t *tx) ListModules(ctx context.Context, projectID int64) ([]model.Module, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT `+moduleColumns+` WHERE m.project_id = ? ORDER BY m.id`, projectID)
	if err != nil {
		t.logger.Error("Failed to list modules", zap.Int64("project_id", projectID), zap.Error(err))
		return nil, mapError("list modules", err)
	}
	defer rows.Close()

	modules := []model.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, mapError("scan module", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list modules", err)
	}
	return modules, nil
}

func (t *tx) ListUpdates(ctx context.Context, moduleID int64, order storage.Order) ([]model.Update, error) {
	dir := "ASC"
	if order == storage.Desc {
		dir = "DESC"
	}
	return t.queryUpdates(ctx, "list updates",
		`SELECT id, module_id, update_date, update_text FROM module_updates
WHERE module_id = ? ORDER BY update_date `+dir+`, id ASC`, moduleID)
}

func (t *tx) ListProjectUpdates(ctx context.Context, projectID int64) ([]model.Update, error) {
	return t.queryUpdates(ctx, "list project updates",
		`SELECT u.id, u.module_id, u.update_date, u.update_text FROM module_updates u
JOIN modules m ON m.id = u.module_id
WHERE m.project_id = ? ORDER BY u.update_date ASC, u.id ASC`, projectID)
}

func (t *tx) queryUpdates(ctx context.Context, op, query string, arg int64) ([]model.Update, error) {
	rows, err := t.q.QueryContext(ctx, query, arg)
	if err != nil {
		t.logger.Error("Failed to "+op, zap.Int64("id", arg), zap.Error(err))
		return nil, mapError(op, err)
	}
	defer rows.Close()

	updates := []model.Update{}
	for rows.Next() {
		u, err := t.scanUpdate(rows)
		if err != nil {
			return nil, mapError("scan update", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return updates, nil
}

// exists reports whether a row with id is present in table. table is never
// caller supplied.
func (t *tx) exists(ctx context.Context, table string, id int64) error {
	var one int
	err := t.q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if err != nil {
		return mapError(fmt.Sprintf("%s %d", strings.TrimSuffix(table, "s"), id), err)
	}
	return nil
}

func (t *tx) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *tx) CreateProject(ctx context.Context, name string, deadline *model.Date) (int64, error) {
	t.logger.Debug("Inserting project", zap.String("name", name))

	var raw any
	if deadline != nil {
		raw = deadline.String()
	}
	id, err := t.insert(ctx, `INSERT INTO projects (name, deadline) VALUES (?, ?)`, name, raw)
	if err != nil {
		t.logger.Error("Failed to insert project", zap.Error(err))
		return 0, mapError("create project", err)
	}

	t.logger.Info("Project inserted successfully", zap.Int64("id", id))
	return id, nil
}

func (t *tx) DeleteProject(ctx context.Context, id int64) error {
	t.logger.Debug("Deleting project", zap.Int64("id", id))
	return t.deleteOne(ctx, "project", `DELETE FROM projects WHERE id = ?`, id)
}

func (t *tx) deleteOne(ctx context.Context, what, query string, args ...any) error {
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		t.logger.Error("Failed to delete "+what, zap.Error(err))
		return mapError("delete "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError("delete "+what, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", what, model.ErrNotFound)
	}
	t.logger.Info("Row deleted successfully", zap.String("entity", what), zap.Int64("rows", n))
	return nil
}

func (t *tx) CreateMember(ctx context.Context, projectID int64, name string) (int64, error) {
	t.logger.Debug("Inserting member", zap.Int64("project_id", projectID), zap.String("name", name))

	if err := t.exists(ctx, "projects", projectID); err != nil {
		return 0, err
	}
	id, err := t.insert(ctx, `INSERT INTO members (name, project_id) VALUES (?, ?)`, name, projectID)
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

	if err := t.exists(ctx, "projects", m.ProjectID); err != nil {
		return 0, err
	}
	priority := m.Priority
	if priority == "" {
		priority = model.DefaultPriority
	}
	var member any
	if m.AssignedMemberID != nil {
		member = *m.AssignedMemberID
	}
	id, err := t.insert(ctx,
		`INSERT INTO modules (name, project_id, assigned_member_id, completed, priority) VALUES (?, ?, ?, 0, ?)`,
		m.Name, m.ProjectID, member, string(priority))
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
		return t.exists(ctx, "modules", id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*patch.Name))
	}
	if patch.AssignedMemberID != nil {
		sets = append(sets, "assigned_member_id = ?")
		args = append(args, *patch.AssignedMemberID)
	}
	if patch.Unassign {
		sets = append(sets, "assigned_member_id = NULL")
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	args = append(args, id)

	t.logger.Debug("Updating module", zap.Int64("id", id), zap.Strings("fields", sets))
	return t.updateOne(ctx, "update module", `UPDATE modules SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

func (t *tx) CompleteModule(ctx context.Context, id int64) (bool, error) {
	t.logger.Debug("Completing module", zap.Int64("id", id))

	res, err := t.q.ExecContext(ctx, `UPDATE modules SET completed = 1 WHERE id = ? AND completed = 0`, id)
	if err != nil {
		t.logger.Error("Failed to complete module", zap.Int64("id", id), zap.Error(err))
		return false, mapError("complete module", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapError("complete module", err)
	}
	if n == 0 {
		return false, t.exists(ctx, "modules", id)
	}
	t.logger.Info("Module completed successfully", zap.Int64("id", id))
	return true, nil
}

func (t *tx) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := t.q.ExecContext(ctx, query, args...)
	if err != nil {
		t.logger.Error("Failed to "+op, zap.Error(err))
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	t.logger.Info("Module updated successfully", zap.String("op", op))
	return nil
}

func (t *tx) DeleteModule(ctx context.Context, projectID, id int64) error {
	t.logger.Debug("Deleting module", zap.Int64("project_id", projectID), zap.Int64("id", id))
	return t.deleteOne(ctx, "module", `DELETE FROM modules WHERE id = ? AND project_id = ?`, id, projectID)
}

func (t *tx) AppendUpdate(ctx context.Context, moduleID int64, date model.Date, text string) (int64, error) {
	t.logger.Debug("Inserting module update", zap.Int64("module_id", moduleID), zap.Stringer("date", date))

	if err := t.exists(ctx, "modules", moduleID); err != nil {
		return 0, err
	}
	id, err := t.insert(ctx,
		`INSERT INTO module_updates (module_id, update_date, update_text) VALUES (?, ?, ?)`,
		moduleID, date.String(), text)
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
	var aggregateID any
	if e.AggregateID != nil {
		aggregateID = *e.AggregateID
	}
	now := time.Now().UTC().UnixMilli()

	id, err := t.insert(ctx,
		`INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status, retry_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		e.AggregateType, aggregateID, e.RoutingKey, string(e.Payload), status, now, now)
	if err != nil {
		t.logger.Error("Failed to record outbox event", zap.String("routing_key", e.RoutingKey), zap.Error(err))
		return 0, mapError("record event", err)
	}

	t.logger.Debug("Outbox event recorded", zap.Int64("event_id", id), zap.String("routing_key", e.RoutingKey))
	return id, nil
}
