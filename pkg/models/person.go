package models

// Person is a console user record as exchanged with the /Person endpoints.
type Person struct {
	PersonID string   `json:"personId" yaml:"personId"`
	Name     string   `json:"name" yaml:"name"`
	Role     Role     `json:"role" yaml:"role"`
	IsActive FlexBool `json:"isActive" yaml:"isActive"`
}

// PersonCreate is the POST /Person body.
type PersonCreate struct {
	Name     string `json:"name" yaml:"name"`
	Role     Role   `json:"role" yaml:"role"`
	IsActive *bool  `json:"isActive,omitempty" yaml:"isActive,omitempty"`
}

// PersonUpdate is the PUT /Person/{id} body.
type PersonUpdate struct {
	Name     string `json:"name" yaml:"name"`
	Role     Role   `json:"role" yaml:"role"`
	IsActive *bool  `json:"isActive,omitempty" yaml:"isActive,omitempty"`
}

// PersonTeam lists the members of a project team.
type PersonTeam struct {
	ProjectTeamID string   `json:"projectTeamId" yaml:"projectTeamId"`
	PersonIDs     []string `json:"personId" yaml:"personId"`
}
