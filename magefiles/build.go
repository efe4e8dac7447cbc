//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every package of the module.
func (Build) Library() error {
	mg.Deps(Build.Tidy)
	return executeCmd("go", "build", "./...")
}

// Runs go mod tidy.
func (Build) Tidy() error {
	return goTidy()
}

// Runs go vet on every package.
func (Build) Vet() error {
	return executeCmd("go", "vet", "./...")
}
