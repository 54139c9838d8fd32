//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary  = "korengpro"
	mainPkg = "./cmd/korengpro"
)

var Default = Build

// Build compiles the korengpro binary. sqlite needs cgo.
func Build() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, "go", "build", "-o", binary, mainPkg)
}

// Install installs korengpro into GOPATH/bin.
func Install() error {
	return sh.RunV("go", "install", mainPkg)
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Integration runs the tests that talk to real TTS and translation
// services. They skip themselves when no API key is set.
func Integration() error {
	if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Println("Neither OPENAI_API_KEY nor GEMINI_API_KEY is set, integration tests will skip")
	}
	return sh.RunV("go", "test", "-run", "Integration", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Run builds and serves the web player.
func Run() error {
	mg.Deps(Build)
	return sh.RunV("./" + binary)
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm(binary)
}
