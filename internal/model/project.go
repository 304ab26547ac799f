package model

type Project struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Deadline *Date  `json:"deadline,omitempty"`
}

type Member struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

type Update struct {
	ID       int64  `json:"id"`
	ModuleID int64  `json:"module_id"`
	Date     Date   `json:"date"`
	Text     string `json:"text"`
}
