//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests.
func (Test) Unit() error {
	fmt.Println("Run unit tests...")
	return executeCmd("go", "test", "./...")
}

// Runs the unit tests with the race detector. The caches are exercised from
// several goroutines.
func (Test) Race() error {
	return executeCmd("go", "test", "-race", "-count=1", "./engine/...")
}

// Writes a coverage profile to coverage.out.
func (Test) Cover() error {
	return executeCmd("go", "test", "-coverprofile=coverage.out", "./engine/...")
}
