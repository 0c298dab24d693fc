package model

import (
	"encoding/json"
	"sort"
)

type componentAlias Component

type componentJSON struct {
	componentAlias
	DependsOn []string `json:"depends_on"`
}

// MarshalJSON serializes DependsOn as a sorted array so artifacts are
// byte-stable across runs.
func (c *Component) MarshalJSON() ([]byte, error) {
	deps := make([]string, 0, len(c.DependsOn))
	for id := range c.DependsOn {
		deps = append(deps, id)
	}
	sort.Strings(deps)
	return json.Marshal(componentJSON{componentAlias(*c), deps})
}

// UnmarshalJSON restores the DependsOn set from its array form.
func (c *Component) UnmarshalJSON(data []byte) error {
	var cj componentJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	*c = Component(cj.componentAlias)
	if len(cj.DependsOn) > 0 {
		c.DependsOn = make(map[string]bool, len(cj.DependsOn))
		for _, id := range cj.DependsOn {
			c.DependsOn[id] = true
		}
	}
	return nil
}
