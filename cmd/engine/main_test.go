package main

import (
	"errors"
	"testing"

	"github.com/johnpgr/vkengine/internal/verr"
)

func TestExitCodeMapsFatalKinds(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"init failure", verr.New(verr.InitFailure, errors.New("x")), 2},
		{"device lost", verr.New(verr.DeviceLost, errors.New("x")), 3},
		{"record failure", verr.New(verr.RecordFailure, errors.New("x")), 4},
		{"plain error", errors.New("boom"), 1},
		{"unrelated kind", verr.New(verr.GpuAllocFailure, errors.New("x")), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exitCode(c.err); got != c.want {
				t.Fatalf("exitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}
