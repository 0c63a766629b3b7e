package gpubuf

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func memProps(types ...vk.MemoryPropertyFlags) vk.PhysicalDeviceMemoryProperties {
	var p vk.PhysicalDeviceMemoryProperties
	p.MemoryTypeCount = uint32(len(types))
	for i, f := range types {
		p.MemoryTypes[i] = vk.MemoryType{PropertyFlags: f}
	}
	return p
}

func TestFindMemoryTypeExactMatch(t *testing.T) {
	props := memProps(
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	idx, ok := FindMemoryType(props, 0b11, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if !ok || idx != 1 {
		t.Fatalf("expected type index 1, got %d ok=%v", idx, ok)
	}
}

func TestFindMemoryTypeRespectsTypeBitsMask(t *testing.T) {
	props := memProps(
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
	)
	// typeBits only allows index 1, even though index 0 would also match.
	idx, ok := FindMemoryType(props, 0b10, vk.MemoryPropertyHostVisibleBit)
	if !ok || idx != 1 {
		t.Fatalf("expected type index 1, got %d ok=%v", idx, ok)
	}
}

func TestFindMemoryTypeNoMatch(t *testing.T) {
	props := memProps(vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	_, ok := FindMemoryType(props, 0b1, vk.MemoryPropertyHostVisibleBit)
	if ok {
		t.Fatal("expected no match")
	}
}
