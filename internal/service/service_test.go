package service_test

import (
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/service"
)

func TestLowerReturnsFlattenedInstructions(t *testing.T) {
	instructions, err := service.Lower("main.maat", "henek %ka, 1\nsema %ka, 2\n", service.Options{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instructions))
	}
	if _, ok := instructions[0].(ast.Henek); !ok {
		t.Fatalf("got %T at position 0, want ast.Henek", instructions[0])
	}
}

func TestLowerPropagatesParseErrors(t *testing.T) {
	if _, err := service.Lower("main.maat", "henek %ka\n", service.Options{}); err == nil {
		t.Fatal("expected a parse error for a henek missing its value operand")
	}
}

func TestAssembleNonBootProducesElfHeader(t *testing.T) {
	result, err := service.Assemble("main.maat", "henek %ka, 1\nreturn %ka\n", service.Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(result.Image) < 4 || string(result.Image[:4]) != "\x7fELF" {
		t.Fatalf("got image header % X, want an ELF magic number", result.Image[:4])
	}
	if len(result.Instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(result.Instructions))
	}
}

func TestAssembleBootProducesSectorMultipleImage(t *testing.T) {
	result, err := service.Assemble("main.maat", "henek %ka, 1\n", service.Options{Boot: true})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(result.Image)%512 != 0 {
		t.Fatalf("got image length %d, want a multiple of 512 in boot mode", len(result.Image))
	}
}

func TestAssembleExposesKernelLabelAddress(t *testing.T) {
	result, err := service.Assemble("main.maat", "kernel:\nhenek %ka, 1\n", service.Options{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if _, ok := result.Labels["kernel"]; !ok {
		t.Fatalf("got labels %v, want a \"kernel\" entry", result.Labels)
	}
}
