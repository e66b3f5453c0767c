package models

// Project is a sprint-based project as exchanged with the /Project endpoints.
// CurrentSprintCount never exceeds TotalSprintCount and never decreases.
type Project struct {
	ProjectID          string   `json:"projectId" yaml:"projectId"`
	ProjectName        string   `json:"projectName" yaml:"projectName"`
	TotalSprintCount   FlexInt  `json:"totalSprintCount" yaml:"totalSprintCount"`
	CurrentSprintCount FlexInt  `json:"currentSprintCount" yaml:"currentSprintCount"`
	CreatedByAdminID   string   `json:"createdByAdminId" yaml:"createdByAdminId"`
	IsCompleted        FlexBool `json:"isCompleted" yaml:"isCompleted"`
}

// ProjectCreate is the POST /Project body.
type ProjectCreate struct {
	ProjectName      string `json:"projectName" yaml:"projectName"`
	TotalSprintCount int    `json:"totalSprintCount" yaml:"totalSprintCount"`
	CreatedByAdminID string `json:"createdByAdminId" yaml:"createdByAdminId"`
}

// ProjectUpdate is the PUT /Project/{id} body. Nil fields are left unchanged.
type ProjectUpdate struct {
	ProjectName *string `json:"projectName,omitempty" yaml:"projectName,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty" yaml:"isCompleted,omitempty"`
}
