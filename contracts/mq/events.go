package mq

// Routing keys on the fairshare.events exchange
const (
	RoutingProjectCreated    = "project.created"
	RoutingProjectDeleted    = "project.deleted"
	RoutingMemberAdded       = "member.added"
	RoutingModuleCreated     = "module.created"
	RoutingModuleUpdated     = "module.updated"
	RoutingModuleCompleted   = "module.completed"
	RoutingModuleDeleted     = "module.deleted"
	RoutingModuleUpdateAdded = "module.update_added"
)

// Aggregate types recorded in outbox_events.aggregate_type
const (
	AggregateProject = "project"
	AggregateMember  = "member"
	AggregateModule  = "module"
)

type ProjectCreatedPayload struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Deadline  string `json:"deadline,omitempty"` // YYYY-MM-DD
	TraceID   string `json:"trace_id,omitempty"`
}

type ProjectDeletedPayload struct {
	ProjectID int64  `json:"project_id"`
	TraceID   string `json:"trace_id,omitempty"`
}

type MemberAddedPayload struct {
	MemberID  int64  `json:"member_id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	TraceID   string `json:"trace_id,omitempty"`
}

type ModuleCreatedPayload struct {
	ModuleID         int64  `json:"module_id"`
	ProjectID        int64  `json:"project_id"`
	Name             string `json:"name"`
	AssignedMemberID *int64 `json:"assigned_member_id,omitempty"`
	Priority         string `json:"priority"`
	TraceID          string `json:"trace_id,omitempty"`
}

// ModuleUpdatedPayload carries the module as it is after the edit.
type ModuleUpdatedPayload struct {
	ModuleID         int64  `json:"module_id"`
	ProjectID        int64  `json:"project_id"`
	Name             string `json:"name"`
	AssignedMemberID *int64 `json:"assigned_member_id,omitempty"`
	Priority         string `json:"priority"`
	TraceID          string `json:"trace_id,omitempty"`
}

type ModuleCompletedPayload struct {
	ModuleID  int64  `json:"module_id"`
	ProjectID int64  `json:"project_id"`
	TraceID   string `json:"trace_id,omitempty"`
}

type ModuleDeletedPayload struct {
	ModuleID  int64  `json:"module_id"`
	ProjectID int64  `json:"project_id"`
	TraceID   string `json:"trace_id,omitempty"`
}

type ModuleUpdateAddedPayload struct {
	UpdateID int64  `json:"update_id"`
	ModuleID int64  `json:"module_id"`
	Date     string `json:"date"` // YYYY-MM-DD
	Text     string `json:"text"`
	TraceID  string `json:"trace_id,omitempty"`
}
