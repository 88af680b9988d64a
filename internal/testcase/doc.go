// Package testcase models the configured test cases of a run.
//
// A Suite holds test cases indexed contiguously from 1. Each output-queue
// entry of each test owns one result slot, numbered globally across the
// suite in declared order, so the slot for a given output never depends on
// which tests are selected.
package testcase
