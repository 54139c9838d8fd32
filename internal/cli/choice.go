package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// choiceValue is a string flag restricted to a fixed set of values.
type choiceValue struct {
	target  *string
	choices []string
}

var _ pflag.Value = (*choiceValue)(nil)

func newChoiceValue(target *string, choices ...string) *choiceValue {
	return &choiceValue{target: target, choices: choices}
}

func (c *choiceValue) String() string {
	if c.target == nil {
		return ""
	}
	return *c.target
}

func (c *choiceValue) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(c.choices, v) {
		return fmt.Errorf("must be one of %s", strings.Join(c.choices, ", "))
	}
	*c.target = v
	return nil
}

func (c *choiceValue) Type() string {
	return "string"
}
