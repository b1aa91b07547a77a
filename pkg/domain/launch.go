package domain

import (
	"fmt"
	"strings"
)

// LaunchSpec is the command line used to start a tool server process.
type LaunchSpec struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`

	// Env holds extra "KEY=VALUE" entries appended to the parent environment.
	Env []string `yaml:"env,omitempty" json:"env,omitempty"`
}

// ParseLaunchSpec splits a whitespace-separated command line into command and args.
func ParseLaunchSpec(line string) (LaunchSpec, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return LaunchSpec{}, fmt.Errorf("empty launch spec")
	}
	return LaunchSpec{Command: fields[0], Args: fields[1:]}, nil
}

// String renders the spec back as a command line.
func (s LaunchSpec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}
