package service

import (
	"context"
	"fmt"

	"fairshare/internal/aggregate"
	"fairshare/internal/model"
	"fairshare/internal/storage"
)

// ProjectView is the project page: the project with its members and modules
// and the derived progress and urgency.
type ProjectView struct {
	Project          model.Project     `json:"project"`
	Members          []model.Member    `json:"members"`
	Modules          []model.Module    `json:"modules"`
	Progress         int               `json:"progress"`
	Urgency          aggregate.Urgency `json:"urgency"`
	TotalModules     int               `json:"total_modules"`
	CompletedModules int               `json:"completed_modules"`
}

// ModuleView is the module page. Candidates are the project's members other
// than the current assignee.
type ModuleView struct {
	Module     model.Module   `json:"module"`
	Project    model.Project  `json:"project"`
	Member     *model.Member  `json:"member,omitempty"`
	Updates    []model.Update `json:"updates"`
	Candidates []model.Member `json:"candidates"`
}

// ProjectSummary is one row of the project listing.
type ProjectSummary struct {
	Project          model.Project     `json:"project"`
	Progress         int               `json:"progress"`
	Urgency          aggregate.Urgency `json:"urgency"`
	TotalModules     int               `json:"total_modules"`
	CompletedModules int               `json:"completed_modules"`
}

func countCompleted(modules []model.Module) int {
	n := 0
	for _, m := range modules {
		if m.Completed {
			n++
		}
	}
	return n
}

func (t *Tracker) GetProjectView(ctx context.Context, id int64) (view ProjectView, err error) {
	ctx, done := t.observe(ctx, "get_project_view")
	defer func() { err = done(err) }()

	today := t.Today()
	err = t.store.View(ctx, func(r storage.Reader) error {
		p, err := r.GetProject(ctx, id)
		if err != nil {
			return err
		}
		members, err := r.ListMembers(ctx, id)
		if err != nil {
			return err
		}
		modules, err := r.ListModules(ctx, id)
		if err != nil {
			return err
		}
		view = ProjectView{
			Project:          p,
			Members:          nonNil(members),
			Modules:          nonNil(modules),
			Progress:         aggregate.ComputeProgress(modules),
			Urgency:          aggregate.ComputeUrgency(p.Deadline, today),
			TotalModules:     len(modules),
			CompletedModules: countCompleted(modules),
		}
		return nil
	})
	if err != nil {
		return ProjectView{}, fmt.Errorf("project %d view: %w", id, err)
	}
	return view, nil
}

func (t *Tracker) GetModuleView(ctx context.Context, id int64) (view ModuleView, err error) {
	ctx, done := t.observe(ctx, "get_module_view")
	defer func() { err = done(err) }()

	err = t.store.View(ctx, func(r storage.Reader) error {
		m, err := r.GetModule(ctx, id)
		if err != nil {
			return err
		}
		p, err := r.GetProject(ctx, m.ProjectID)
		if err != nil {
			return err
		}
		updates, err := r.ListUpdates(ctx, id, storage.Asc)
		if err != nil {
			return err
		}
		members, err := r.ListMembers(ctx, m.ProjectID)
		if err != nil {
			return err
		}

		view = ModuleView{Module: m, Project: p, Updates: aggregate.SortUpdates(updates), Candidates: []model.Member{}}
		for _, member := range members {
			if m.AssignedMemberID != nil && member.ID == *m.AssignedMemberID {
				view.Member = &member
				continue
			}
			view.Candidates = append(view.Candidates, member)
		}
		return nil
	})
	if err != nil {
		return ModuleView{}, fmt.Errorf("module %d view: %w", id, err)
	}
	return view, nil
}

// GetProjectReport is the final report with urgency as of today.
func (t *Tracker) GetProjectReport(ctx context.Context, id int64) (report aggregate.Report, err error) {
	ctx, done := t.observe(ctx, "get_project_report")
	defer func() { err = done(err) }()

	today := t.Today()
	err = t.store.View(ctx, func(r storage.Reader) error {
		p, err := r.GetProject(ctx, id)
		if err != nil {
			return err
		}
		modules, err := r.ListModules(ctx, id)
		if err != nil {
			return err
		}
		updates, err := r.ListProjectUpdates(ctx, id)
		if err != nil {
			return err
		}
		report = aggregate.BuildReport(p, modules, aggregate.GroupUpdates(updates))
		report.Urgency = aggregate.ComputeUrgency(p.Deadline, today)
		return nil
	})
	if err != nil {
		return aggregate.Report{}, fmt.Errorf("project %d report: %w", id, err)
	}
	return report, nil
}

// ListProjects returns every project with its progress and urgency.
func (t *Tracker) ListProjects(ctx context.Context) (out []ProjectSummary, err error) {
	ctx, done := t.observe(ctx, "list_projects")
	defer func() { err = done(err) }()

	today := t.Today()
	err = t.store.View(ctx, func(r storage.Reader) error {
		projects, err := r.ListProjects(ctx)
		if err != nil {
			return err
		}
		out = make([]ProjectSummary, 0, len(projects))
		for _, p := range projects {
			modules, err := r.ListModules(ctx, p.ID)
			if err != nil {
				return err
			}
			out = append(out, ProjectSummary{
				Project:          p,
				Progress:         aggregate.ComputeProgress(modules),
				Urgency:          aggregate.ComputeUrgency(p.Deadline, today),
				TotalModules:     len(modules),
				CompletedModules: countCompleted(modules),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
