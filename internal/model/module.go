package model

import (
	"fmt"
	"strings"
)

type Module struct {
	ID               int64    `json:"id"`
	ProjectID        int64    `json:"project_id"`
	Name             string   `json:"name"`
	AssignedMemberID *int64   `json:"assigned_member_id,omitempty"`
	AssigneeName     string   `json:"assignee_name,omitempty"`
	Completed        bool     `json:"completed"`
	Priority         Priority `json:"priority"`
}

// NewModule carries the fields of a module being created.
type NewModule struct {
	ProjectID        int64
	Name             string
	AssignedMemberID *int64
	Priority         Priority
}

// ModulePatch is a partial module update. Nil fields keep their stored value.
// Unassign clears the assignee and cannot be combined with AssignedMemberID.
type ModulePatch struct {
	Name             *string
	AssignedMemberID *int64
	Unassign         bool
	Priority         *Priority
}

func (p ModulePatch) Empty() bool {
	return p.Name == nil && p.AssignedMemberID == nil && !p.Unassign && p.Priority == nil
}

func (p ModulePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("module name is required: %w", ErrInvalidInput)
	}
	if p.AssignedMemberID != nil && p.Unassign {
		return fmt.Errorf("cannot assign and unassign in one edit: %w", ErrInvalidInput)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("priority %q: %w", *p.Priority, ErrInvalidInput)
	}
	return nil
}

// ModuleState is a position in {Unassigned, Assigned} x {Incomplete, Complete}.
type ModuleState int

const (
	StateUnassignedIncomplete ModuleState = iota
	StateAssignedIncomplete
	StateUnassignedComplete
	StateAssignedComplete
)

func (s ModuleState) Assigned() bool {
	return s == StateAssignedIncomplete || s == StateAssignedComplete
}

func (s ModuleState) Complete() bool {
	return s == StateUnassignedComplete || s == StateAssignedComplete
}

func (s ModuleState) String() string {
	switch s {
	case StateUnassignedIncomplete:
		return "unassigned/incomplete"
	case StateAssignedIncomplete:
		return "assigned/incomplete"
	case StateUnassignedComplete:
		return "unassigned/complete"
	case StateAssignedComplete:
		return "assigned/complete"
	}
	return fmt.Sprintf("ModuleState(%d)", int(s))
}

func (m Module) State() ModuleState {
	switch {
	case m.AssignedMemberID != nil && m.Completed:
		return StateAssignedComplete
	case m.AssignedMemberID != nil:
		return StateAssignedIncomplete
	case m.Completed:
		return StateUnassignedComplete
	}
	return StateUnassignedIncomplete
}

// Apply returns the module as it would look after p. It does not validate p.
func (m Module) Apply(p ModulePatch) Module {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.AssignedMemberID != nil {
		id := *p.AssignedMemberID
		m.AssignedMemberID = &id
		m.AssigneeName = ""
	}
	if p.Unassign {
		m.AssignedMemberID = nil
		m.AssigneeName = ""
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
	return m
}
