// Package storagetest is a conformance suite for storage.Store
// implementations.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fairshare/internal/model"
	"fairshare/internal/storage"
	"fairshare/pkg/outbox"
)

// Opener returns an empty, migrated store. The suite closes it.
type Opener func(t *testing.T) storage.Store

// Run executes every conformance test against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"ProjectLifecycle", testProjectLifecycle},
		{"ChildrenRequireLiveParent", testChildrenRequireLiveParent},
		{"ModuleDefaultsAndAssignee", testModuleDefaultsAndAssignee},
		{"UpdateModulePartial", testUpdateModulePartial},
		{"CompleteIsIdempotent", testCompleteIsIdempotent},
		{"DeleteModuleScopedToProject", testDeleteModuleScopedToProject},
		{"DeleteProjectCascades", testDeleteProjectCascades},
		{"UpdatesOrderedByDateThenInsertion", testUpdatesOrdering},
		{"RollbackOnError", testRollbackOnError},
		{"ConcurrentCompleteAndDelete", testConcurrentCompleteAndDelete},
		{"ConcurrentAppendAndProjectDelete", testConcurrentAppendAndProjectDelete},
		{"ConcurrentCompleteChangesOnce", testConcurrentCompleteChangesOnce},
		{"OutboxLifecycle", testOutboxLifecycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func date(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func update(t *testing.T, s storage.Store, fn func(tx storage.Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func view(t *testing.T, s storage.Store, fn func(r storage.Reader) error) {
	t.Helper()
	if err := s.View(context.Background(), fn); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// seedProject creates a project with one member and one module assigned to it.
func seedProject(t *testing.T, s storage.Store, name string) (projectID, memberID, moduleID int64) {
	t.Helper()
	ctx := context.Background()
	update(t, s, func(tx storage.Tx) error {
		var err error
		if projectID, err = tx.CreateProject(ctx, name, nil); err != nil {
			return err
		}
		if memberID, err = tx.CreateMember(ctx, projectID, "Ann"); err != nil {
			return err
		}
		moduleID, err = tx.CreateModule(ctx, model.NewModule{
			ProjectID:        projectID,
			Name:             "Design",
			AssignedMemberID: &memberID,
			Priority:         model.PriorityHigh,
		})
		return err
	})
	return projectID, memberID, moduleID
}

func testProjectLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()
	deadline := date(t, "2026-05-01")

	var id, bare int64
	update(t, s, func(tx storage.Tx) error {
		var err error
		if id, err = tx.CreateProject(ctx, "Launch", &deadline); err != nil {
			return err
		}
		bare, err = tx.CreateProject(ctx, "Backlog", nil)
		return err
	})
	if id == bare {
		t.Fatalf("ids not unique: %d", id)
	}

	view(t, s, func(r storage.Reader) error {
		p, err := r.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != "Launch" || p.Deadline == nil || *p.Deadline != deadline {
			return fmt.Errorf("project = %+v", p)
		}
		b, err := r.GetProject(ctx, bare)
		if err != nil {
			return err
		}
		if b.Deadline != nil {
			return fmt.Errorf("bare deadline = %v, want nil", b.Deadline)
		}
		all, err := r.ListProjects(ctx)
		if err != nil {
			return err
		}
		if len(all) != 2 || all[0].ID != id || all[1].ID != bare {
			return fmt.Errorf("projects = %+v", all)
		}
		return nil
	})

	update(t, s, func(tx storage.Tx) error { return tx.DeleteProject(ctx, id) })

	err := s.View(ctx, func(r storage.Reader) error {
		_, err := r.GetProject(ctx, id)
		return err
	})
	wantErr(t, err, model.ErrNotFound)

	err = s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteProject(ctx, id) })
	wantErr(t, err, model.ErrNotFound)

	var next int64
	update(t, s, func(tx storage.Tx) error {
		var err error
		next, err = tx.CreateProject(ctx, "Again", nil)
		return err
	})
	if next == id || next == bare {
		t.Fatalf("id %d reused", next)
	}
}

func testChildrenRequireLiveParent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const missing = int64(9999)

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.CreateMember(ctx, missing, "Ann")
		return err
	})
	wantErr(t, err, model.ErrNotFound)

	err = s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.CreateModule(ctx, model.NewModule{ProjectID: missing, Name: "Design"})
		return err
	})
	wantErr(t, err, model.ErrNotFound)

	err = s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.AppendUpdate(ctx, missing, date(t, "2026-01-01"), "started")
		return err
	})
	wantErr(t, err, model.ErrNotFound)
}

func testModuleDefaultsAndAssignee(t *testing.T, s storage.Store) {
	ctx := context.Background()
	projectID, memberID, moduleID := seedProject(t, s, "Launch")

	var plain int64
	update(t, s, func(tx storage.Tx) error {
		var err error
		plain, err = tx.CreateModule(ctx, model.NewModule{ProjectID: projectID, Name: "Build"})
		return err
	})

	view(t, s, func(r storage.Reader) error {
		m, err := r.GetModule(ctx, moduleID)
		if err != nil {
			return err
		}
		if m.AssignedMemberID == nil || *m.AssignedMemberID != memberID || m.AssigneeName != "Ann" {
			return fmt.Errorf("assigned module = %+v", m)
		}
		if m.Priority != model.PriorityHigh || m.Completed {
			return fmt.Errorf("assigned module = %+v", m)
		}

		p, err := r.GetModule(ctx, plain)
		if err != nil {
			return err
		}
		if p.AssignedMemberID != nil || p.AssigneeName != "" || p.Priority != model.PriorityMedium {
			return fmt.Errorf("plain module = %+v", p)
		}

		list, err := r.ListModules(ctx, projectID)
		if err != nil {
			return err
		}
		if len(list) != 2 || list[0].ID != moduleID || list[1].ID != plain {
			return fmt.Errorf("modules = %+v", list)
		}

		members, err := r.ListMembers(ctx, projectID)
		if err != nil {
			return err
		}
		if len(members) != 1 || members[0].ID != memberID || members[0].ProjectID != projectID {
			return fmt.Errorf("members = %+v", members)
		}
		got, err := r.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if got.Name != "Ann" {
			return fmt.Errorf("member = %+v", got)
		}
		return nil
	})
}

func testUpdateModulePartial(t *testing.T, s storage.Store) {
	ctx := context.Background()
	projectID, memberID, moduleID := seedProject(t, s, "Launch")

	var bob int64
	update(t, s, func(tx storage.Tx) error {
		var err error
		bob, err = tx.CreateMember(ctx, projectID, "Bob")
		return err
	})

	name := "Design v2"
	update(t, s, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, moduleID, model.ModulePatch{Name: &name})
	})
	get := func() model.Module {
		var m model.Module
		view(t, s, func(r storage.Reader) error {
			var err error
			m, err = r.GetModule(ctx, moduleID)
			return err
		})
		return m
	}
	m := get()
	if m.Name != name || m.Priority != model.PriorityHigh || m.AssignedMemberID == nil || *m.AssignedMemberID != memberID {
		t.Fatalf("after rename = %+v", m)
	}

	low := model.PriorityLow
	update(t, s, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, moduleID, model.ModulePatch{AssignedMemberID: &bob, Priority: &low})
	})
	m = get()
	if m.AssigneeName != "Bob" || m.Priority != model.PriorityLow || m.Name != name {
		t.Fatalf("after reassign = %+v", m)
	}

	update(t, s, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, moduleID, model.ModulePatch{Unassign: true})
	})
	if m = get(); m.AssignedMemberID != nil || m.AssigneeName != "" {
		t.Fatalf("after unassign = %+v", m)
	}

	err := s.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, 9999, model.ModulePatch{Name: &name})
	})
	wantErr(t, err, model.ErrNotFound)

	err = s.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, 9999, model.ModulePatch{})
	})
	wantErr(t, err, model.ErrNotFound)

	bad := model.Priority("Urgent")
	err = s.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateModule(ctx, moduleID, model.ModulePatch{Priority: &bad})
	})
	wantErr(t, err, model.ErrInvalidInput)
}

func testCompleteIsIdempotent(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, _, moduleID := seedProject(t, s, "Launch")

	for i, want := range []bool{true, false} {
		update(t, s, func(tx storage.Tx) error {
			changed, err := tx.CompleteModule(ctx, moduleID)
			if err != nil {
				return err
			}
			if changed != want {
				return fmt.Errorf("call %d changed = %v, want %v", i, changed, want)
			}
			return nil
		})
	}
	view(t, s, func(r storage.Reader) error {
		m, err := r.GetModule(ctx, moduleID)
		if err != nil {
			return err
		}
		if !m.Completed {
			return fmt.Errorf("module not completed")
		}
		return nil
	})

	err := s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.CompleteModule(ctx, 9999)
		return err
	})
	wantErr(t, err, model.ErrNotFound)
}

func testDeleteModuleScopedToProject(t *testing.T, s storage.Store) {
	ctx := context.Background()
	projectID, _, moduleID := seedProject(t, s, "Launch")
	otherProject, _, _ := seedProject(t, s, "Other")

	var sibling int64
	update(t, s, func(tx storage.Tx) error {
		var err error
		if sibling, err = tx.CreateModule(ctx, model.NewModule{ProjectID: projectID, Name: "Build"}); err != nil {
			return err
		}
		if _, err = tx.AppendUpdate(ctx, moduleID, date(t, "2026-01-01"), "started"); err != nil {
			return err
		}
		_, err = tx.AppendUpdate(ctx, sibling, date(t, "2026-01-02"), "kept")
		return err
	})

	err := s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteModule(ctx, otherProject, moduleID) })
	wantErr(t, err, model.ErrNotFound)

	update(t, s, func(tx storage.Tx) error { return tx.DeleteModule(ctx, projectID, moduleID) })

	view(t, s, func(r storage.Reader) error {
		if _, err := r.GetModule(ctx, moduleID); !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("deleted module error = %v", err)
		}
		gone, err := r.ListUpdates(ctx, moduleID, storage.Asc)
		if err != nil {
			return err
		}
		if len(gone) != 0 {
			return fmt.Errorf("orphan updates = %+v", gone)
		}
		kept, err := r.ListUpdates(ctx, sibling, storage.Asc)
		if err != nil {
			return err
		}
		if len(kept) != 1 {
			return fmt.Errorf("sibling updates = %+v", kept)
		}
		if _, err := r.GetProject(ctx, projectID); err != nil {
			return err
		}
		return nil
	})

	err = s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteModule(ctx, projectID, moduleID) })
	wantErr(t, err, model.ErrNotFound)
}

func testDeleteProjectCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()

	type graph struct {
		project int64
		members []int64
		modules []int64
	}
	var graphs []graph
	for g := 0; g < 3; g++ {
		var gr graph
		update(t, s, func(tx storage.Tx) error {
			var err error
			if gr.project, err = tx.CreateProject(ctx, fmt.Sprintf("P%d", g), nil); err != nil {
				return err
			}
			for i := 0; i <= g; i++ {
				mem, err := tx.CreateMember(ctx, gr.project, fmt.Sprintf("M%d", i))
				if err != nil {
					return err
				}
				gr.members = append(gr.members, mem)
				mod, err := tx.CreateModule(ctx, model.NewModule{ProjectID: gr.project, Name: fmt.Sprintf("Mod%d", i), AssignedMemberID: &mem})
				if err != nil {
					return err
				}
				gr.modules = append(gr.modules, mod)
				for u := 0; u < 2; u++ {
					if _, err := tx.AppendUpdate(ctx, mod, date(t, "2026-02-01"), "note"); err != nil {
						return err
					}
				}
			}
			return nil
		})
		graphs = append(graphs, gr)
	}

	victim, survivor := graphs[2], graphs[1]
	update(t, s, func(tx storage.Tx) error { return tx.DeleteProject(ctx, victim.project) })

	view(t, s, func(r storage.Reader) error {
		for _, id := range victim.members {
			if _, err := r.GetMember(ctx, id); !errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("member %d error = %v", id, err)
			}
		}
		for _, id := range victim.modules {
			if _, err := r.GetModule(ctx, id); !errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("module %d error = %v", id, err)
			}
			ups, err := r.ListUpdates(ctx, id, storage.Asc)
			if err != nil {
				return err
			}
			if len(ups) != 0 {
				return fmt.Errorf("module %d left %d updates", id, len(ups))
			}
		}
		members, err := r.ListMembers(ctx, victim.project)
		if err != nil {
			return err
		}
		modules, err := r.ListModules(ctx, victim.project)
		if err != nil {
			return err
		}
		if len(members) != 0 || len(modules) != 0 {
			return fmt.Errorf("orphans: %d members, %d modules", len(members), len(modules))
		}

		left, err := r.ListProjectUpdates(ctx, survivor.project)
		if err != nil {
			return err
		}
		if len(left) != 2*len(survivor.modules) {
			return fmt.Errorf("survivor updates = %d", len(left))
		}
		return nil
	})
}

func testUpdatesOrdering(t *testing.T, s storage.Store) {
	ctx := context.Background()
	projectID, _, moduleID := seedProject(t, s, "Launch")

	inserts := []struct{ date, text string }{
		{"2026-03-02", "b1"},
		{"2026-03-01", "a"},
		{"2026-03-02", "b2"},
		{"2026-03-03", "c"},
		{"2026-03-02", "b3"},
	}
	update(t, s, func(tx storage.Tx) error {
		for _, in := range inserts {
			if _, err := tx.AppendUpdate(ctx, moduleID, date(t, in.date), in.text); err != nil {
				return err
			}
		}
		return nil
	})

	texts := func(us []model.Update) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.Text
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	view(t, s, func(r storage.Reader) error {
		asc, err := r.ListUpdates(ctx, moduleID, storage.Asc)
		if err != nil {
			return err
		}
		if want := []string{"a", "b1", "b2", "b3", "c"}; !equal(texts(asc), want) {
			return fmt.Errorf("asc = %v, want %v", texts(asc), want)
		}
		desc, err := r.ListUpdates(ctx, moduleID, storage.Desc)
		if err != nil {
			return err
		}
		if want := []string{"c", "b1", "b2", "b3", "a"}; !equal(texts(desc), want) {
			return fmt.Errorf("desc = %v, want %v", texts(desc), want)
		}
		all, err := r.ListProjectUpdates(ctx, projectID)
		if err != nil {
			return err
		}
		if !equal(texts(all), texts(asc)) {
			return fmt.Errorf("project updates = %v", texts(all))
		}
		if all[0].Date != date(t, "2026-03-01") || all[0].ModuleID != moduleID {
			return fmt.Errorf("first update = %+v", all[0])
		}
		return nil
	})
}

func testRollbackOnError(t *testing.T, s storage.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	var id int64
	err := s.Update(ctx, func(tx storage.Tx) error {
		var err error
		if id, err = tx.CreateProject(ctx, "Doomed", nil); err != nil {
			return err
		}
		if _, err := tx.RecordEvent(ctx, outbox.Event{AggregateType: "project", RoutingKey: "project.created", Payload: []byte(`{}`)}); err != nil {
			return err
		}
		return boom
	})
	wantErr(t, err, boom)

	err = s.View(ctx, func(r storage.Reader) error {
		_, err := r.GetProject(ctx, id)
		return err
	})
	wantErr(t, err, model.ErrNotFound)

	pending, err := s.Outbox().PendingEvents(ctx, 100)
	if err != nil {
		t.Fatalf("pending events: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("rolled back event visible: %+v", pending)
	}
}

// acceptable reports whether err is one of the outcomes a write racing a
// cascade may observe.
func acceptable(err error) bool {
	return err == nil || errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConflict)
}

func testConcurrentCompleteAndDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		projectID, _, moduleID := seedProject(t, s, fmt.Sprintf("Race%d", round))

		var (
			wg                     sync.WaitGroup
			completeErr, deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			completeErr = s.Update(ctx, func(tx storage.Tx) error {
				_, err := tx.CompleteModule(ctx, moduleID)
				return err
			})
		}()
		go func() {
			defer wg.Done()
			deleteErr = s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteModule(ctx, projectID, moduleID) })
		}()
		wg.Wait()

		if !acceptable(completeErr) {
			t.Fatalf("round %d complete error = %v", round, completeErr)
		}
		if deleteErr != nil && !errors.Is(deleteErr, model.ErrConflict) {
			t.Fatalf("round %d delete error = %v", round, deleteErr)
		}
		if deleteErr != nil {
			continue
		}
		err := s.View(ctx, func(r storage.Reader) error {
			_, err := r.GetModule(ctx, moduleID)
			return err
		})
		wantErr(t, err, model.ErrNotFound)
	}
}

func testConcurrentCompleteChangesOnce(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, _, moduleID := seedProject(t, s, "Race")

	const callers = 8
	var (
		wg      sync.WaitGroup
		changed = make([]bool, callers)
		errs    = make([]error, callers)
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.Update(ctx, func(tx storage.Tx) error {
				var err error
				changed[i], err = tx.CompleteModule(ctx, moduleID)
				return err
			})
		}(i)
	}
	close(start)
	wg.Wait()

	winners, failures := 0, 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil && changed[i]:
			winners++
		case errs[i] != nil:
			if !errors.Is(errs[i], model.ErrConflict) {
				t.Fatalf("caller %d error = %v", i, errs[i])
			}
			failures++
		}
	}
	if winners > 1 {
		t.Fatalf("%d callers changed the module, want at most one", winners)
	}
	if winners == 0 && failures < callers {
		t.Fatalf("no caller changed the module")
	}
}

func testConcurrentAppendAndProjectDelete(t *testing.T, s storage.Store) {
	ctx := context.Background()
	projectID, _, moduleID := seedProject(t, s, "Race")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.Update(ctx, func(tx storage.Tx) error {
				_, err := tx.AppendUpdate(ctx, moduleID, model.DateOf(time.Now()), fmt.Sprintf("w%d", i))
				return err
			})
		}(i)
	}
	var deleteErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		deleteErr = s.Update(ctx, func(tx storage.Tx) error { return tx.DeleteProject(ctx, projectID) })
	}()
	close(start)
	wg.Wait()

	for i, err := range errs {
		if !acceptable(err) {
			t.Fatalf("writer %d error = %v", i, err)
		}
	}
	if deleteErr != nil {
		if !errors.Is(deleteErr, model.ErrConflict) {
			t.Fatalf("delete error = %v", deleteErr)
		}
		return
	}
	view(t, s, func(r storage.Reader) error {
		left, err := r.ListUpdates(ctx, moduleID, storage.Asc)
		if err != nil {
			return err
		}
		if len(left) != 0 {
			return fmt.Errorf("%d updates survived the cascade", len(left))
		}
		return nil
	})
}

func testOutboxLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()
	repo := s.Outbox()

	var first, second int64
	update(t, s, func(tx storage.Tx) error {
		e1, err := outbox.NewEvent("project", 1, "project.created", map[string]any{"project_id": 1})
		if err != nil {
			return err
		}
		if first, err = tx.RecordEvent(ctx, e1); err != nil {
			return err
		}
		e2, err := outbox.NewEvent("member", 2, "member.added", map[string]any{"member_id": 2})
		if err != nil {
			return err
		}
		second, err = tx.RecordEvent(ctx, e2)
		return err
	})

	pending, err := repo.PendingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first || pending[1].ID != second {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].RoutingKey != "project.created" || pending[0].AggregateID == nil || *pending[0].AggregateID != 1 {
		t.Fatalf("first event = %+v", pending[0])
	}

	if err := repo.MarkSent(ctx, first); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	// one failure schedules a retry in the future; the event leaves the pending batch
	if err := repo.MarkFailed(ctx, second, 2); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, err := repo.GetEvent(ctx, second)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Status != outbox.StatusPending || got.RetryCount != 1 || got.NextRetryAt == nil {
		t.Fatalf("after first failure = %+v", got)
	}
	if pending, err = repo.PendingEvents(ctx, 10); err != nil || len(pending) != 0 {
		t.Fatalf("pending after backoff = %+v, %v", pending, err)
	}

	if err := repo.MarkFailed(ctx, second, 2); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, err := repo.FailedEvents(ctx, 10)
	if err != nil {
		t.Fatalf("failed events: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != second {
		t.Fatalf("failed = %+v", failed)
	}

	if err := repo.ResetEvent(ctx, second); err != nil {
		t.Fatalf("reset: %v", err)
	}
	pending, err = repo.PendingEvents(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second || pending[0].RetryCount != 0 {
		t.Fatalf("pending after reset = %+v", pending)
	}

	if _, err := repo.GetEvent(ctx, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing event error = %v", err)
	}
}
