package models

// ExcludeTags is the json form of the --exclude-tags flag:
// {"tags":[{"name":"Env","value":"dev"}]}
type ExcludeTags struct {
	Tags []Tag `json:"tags"`
}

type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Matches reports whether the instance carries any of the excluded tags.
func (e ExcludeTags) Matches(instance AwsInstance) bool {
	for _, tag := range e.Tags {
		if value, ok := instance.Tag(tag.Name); ok && value == tag.Value {
			return true
		}
	}
	return false
}
