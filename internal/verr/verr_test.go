package verr

import (
	"errors"
	"testing"
)

func TestNewNilPassesThrough(t *testing.T) {
	if New(InitFailure, nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(GpuAllocFailure, errors.New("oom"))
	if !Is(err, GpuAllocFailure) {
		t.Fatal("expected Is to match GpuAllocFailure")
	}
	if Is(err, DeviceLost) {
		t.Fatal("expected Is not to match a different kind")
	}
}

func TestFatalKinds(t *testing.T) {
	if !Fatal(DeviceLost) || !Fatal(RecordFailure) {
		t.Fatal("DeviceLost and RecordFailure must be fatal")
	}
	if Fatal(SwapchainRecreateNeeded) {
		t.Fatal("SwapchainRecreateNeeded must be recoverable")
	}
}

func TestRecoverCapturesPanic(t *testing.T) {
	var err error
	func() {
		defer Recover(ModuleLoadFailure, &err)
		panic(errors.New("boom"))
	}()
	if !Is(err, ModuleLoadFailure) {
		t.Fatalf("expected ModuleLoadFailure, got %v", err)
	}
}
