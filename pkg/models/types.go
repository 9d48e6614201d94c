package models

// Task is one named unit of work from the configuration file:
// the same pattern list applied to every listed directory
type Task struct {
	Name        string
	Directories []string
	Patterns    []string
	Recursive   bool
}
