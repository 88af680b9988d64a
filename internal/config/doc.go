// Package config loads the harness configuration file.
//
// Two file formats are accepted: INI, with the global keys in the unnamed
// top section and one "[test N]" section per test, and YAML (".yaml" or
// ".yml") with the global keys at the top level and the tests under a
// "tests" mapping keyed by index. List values are comma separated in INI and
// sequences in YAML.
//
// Every global key absent from the file may be supplied through the
// environment as MSGHARNESS_<KEY>. The broker execution profile is always
// taken from BROKER_PROFILE. The resolved document is validated against an
// embedded CUE schema before the test suite is built.
package config
