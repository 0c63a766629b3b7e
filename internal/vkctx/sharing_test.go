package vkctx

import "testing"

// TestIntersectOnlyKeepsAvailable exercises the pure-logic helper used by
// validation-layer negotiation without touching the driver.
func TestIntersectOnlyKeepsAvailable(t *testing.T) {
	available := []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_other"}
	wanted := []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_missing"}
	got := intersect(available, wanted)
	if len(got) != 1 || got[0] != "VK_LAYER_KHRONOS_validation" {
		t.Fatalf("unexpected intersection: %v", got)
	}
}

func TestIntersectEmptyWanted(t *testing.T) {
	if got := intersect([]string{"a"}, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
