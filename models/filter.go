package models

// Filter is one ec2 describe filter.
type Filter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Filters is the json form of the --filters flag:
// {"filters":[{"name":"tag:Env","values":["prod"]}]}
type Filters struct {
	Filters []Filter `json:"filters"`
}
