// Package assemble turns a textual WAT module into a binary wasm module
// by shelling out to wat2wasm (part of the WebAssembly Binary Toolkit).
package assemble

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// binaryName is the wat2wasm executable looked up on PATH. It is a var,
// not a const, so tests can point it at a stub without touching PATH.
var binaryName = "wat2wasm"

// WatToWasm assembles a textual WAT module into its binary encoding by
// running wat2wasm with stdin/stdout pipes, avoiding a temp-file
// round-trip for the common case of assembling a string already held in
// memory.
func WatToWasm(wat string) ([]byte, error) {
	if _, err := exec.LookPath(binaryName); err != nil {
		return nil, fmt.Errorf("assemble: %s not found on PATH: %w", binaryName, err)
	}

	cmd := exec.Command(binaryName, "-", "--output=-")
	cmd.Stdin = bytes.NewReader([]byte(wat))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("assemble: %s: %w: %s", binaryName, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// WatFileToWasmFile assembles the WAT module at inputPath and writes the
// binary result to outputPath, the shape the command-line driver needs
// after it has already written the textual .wat file alongside it.
func WatFileToWasmFile(inputPath, outputPath string) error {
	if _, err := exec.LookPath(binaryName); err != nil {
		return fmt.Errorf("assemble: %s not found on PATH: %w", binaryName, err)
	}
	if outputPath == "" {
		return errors.New("assemble: empty output path")
	}

	cmd := exec.Command(binaryName, inputPath, "-o", outputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("assemble: %s: %w: %s", binaryName, err, stderr.String())
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("assemble: expected output at %s: %w", outputPath, err)
	}
	return nil
}
