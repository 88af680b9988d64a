package config

import "fmt"

// NotFoundError reports a configuration file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration file %s not found", e.Path)
}

// MissingError reports a mandatory setting or environment value that has no
// value.
type MissingError struct {
	// Key is the configuration key or environment variable name.
	Key string
	// Env is true when Key names an environment variable.
	Env bool
}

func (e *MissingError) Error() string {
	if e.Env {
		return fmt.Sprintf("environment variable %s is not set", e.Key)
	}
	return fmt.Sprintf("mandatory setting %q is missing (set it in the file or via %s)", e.Key, EnvName(e.Key))
}

// InvalidError reports a configuration file that cannot be parsed or fails
// validation.
type InvalidError struct {
	Path   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, e.Reason)
}
