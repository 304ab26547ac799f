// Package storage defines the persistence contract for projects, members,
// modules and their update histories.
//
// All access goes through two units of work: Update for read-write
// transactions and View for read-only transactions over one consistent
// snapshot. Implementations enforce referential integrity and cascade deletes
// in their schema; callers never clean up dependents themselves.
package storage

import (
	"context"

	"fairshare/internal/model"
	"fairshare/pkg/outbox"
)

// Order selects the direction of an update listing. Ties are always broken by
// insertion order.
type Order int

const (
	Asc Order = iota
	Desc
)

// Reader is the read surface available inside View and Update.
type Reader interface {
	GetProject(ctx context.Context, id int64) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)

	GetMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context, projectID int64) ([]model.Member, error)

	// GetModule and ListModules carry the assignee name.
	GetModule(ctx context.Context, id int64) (model.Module, error)
	ListModules(ctx context.Context, projectID int64) ([]model.Module, error)

	ListUpdates(ctx context.Context, moduleID int64, order Order) ([]model.Update, error)
	// ListProjectUpdates returns every update of every module of the project,
	// date ascending.
	ListProjectUpdates(ctx context.Context, projectID int64) ([]model.Update, error)
}

// Tx is a read-write unit of work.
type Tx interface {
	Reader

	CreateProject(ctx context.Context, name string, deadline *model.Date) (int64, error)
	// DeleteProject removes the project with its members, modules and updates.
	DeleteProject(ctx context.Context, id int64) error

	CreateMember(ctx context.Context, projectID int64, name string) (int64, error)

	// CreateModule does not check that the assignee belongs to the project.
	CreateModule(ctx context.Context, m model.NewModule) (int64, error)
	UpdateModule(ctx context.Context, id int64, patch model.ModulePatch) error
	// CompleteModule marks the module complete and reports whether this call
	// changed it. Concurrent callers see exactly one true.
	CompleteModule(ctx context.Context, id int64) (bool, error)
	// DeleteModule fails with model.ErrNotFound unless the module belongs to projectID.
	DeleteModule(ctx context.Context, projectID, id int64) error

	AppendUpdate(ctx context.Context, moduleID int64, date model.Date, text string) (int64, error)

	// RecordEvent stores an integration event in the same transaction.
	RecordEvent(ctx context.Context, e outbox.Event) (int64, error)
}

// Store owns the database handle. It is safe for concurrent use.
type Store interface {
	// Update commits when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn against a single read-only snapshot.
	View(ctx context.Context, fn func(Reader) error) error

	// Outbox exposes the dispatcher side of the outbox table.
	Outbox() outbox.Repository

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
