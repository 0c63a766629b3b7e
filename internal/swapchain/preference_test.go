package swapchain

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

// chooseFormatFrom mirrors (*Swapchain).chooseFormat's selection logic
// over an explicit candidate list, without touching the driver.
func chooseFormatFrom(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, want := range formatPreference {
		for _, f := range formats {
			if f.Format == want.Format && f.ColorSpace == want.ColorSpace {
				return f
			}
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return vk.SurfaceFormat{}
}

func TestFormatPreferencePrefersSRGB(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := chooseFormatFrom(formats)
	if got.Format != vk.FormatB8g8r8a8Srgb {
		t.Fatalf("expected SRGB format preferred, got %v", got.Format)
	}
}

func TestFormatPreferenceFallsBackToUnorm(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := chooseFormatFrom(formats)
	if got.Format != vk.FormatB8g8r8a8Unorm {
		t.Fatalf("expected UNORM fallback, got %v", got.Format)
	}
}

func TestFormatPreferenceFallsBackToFirstSupported(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := chooseFormatFrom(formats)
	if got.Format != vk.FormatR8g8b8a8Unorm {
		t.Fatalf("expected first-supported fallback, got %v", got.Format)
	}
}

func TestMinImageCountRule(t *testing.T) {
	cases := []struct {
		name           string
		min, max       uint32
		wantMinImages  uint32
	}{
		{"no max cap, adds one", 2, 0, 3},
		{"capped by max", 2, 2, 2},
		{"already at max minus none needed", 3, 4, 4},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.min + 1
			if c.max > 0 && got > c.max {
				got = c.max
			}
			if got != c.wantMinImages {
				t.Fatalf("min=%d max=%d: got %d want %d", c.min, c.max, got, c.wantMinImages)
			}
		})
	}
}
