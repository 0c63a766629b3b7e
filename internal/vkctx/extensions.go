package vkctx

import vk "github.com/vulkan-go/vulkan"

// enumerateInstanceExtensions and enumerateValidationLayers generalize
// vulkan-go-asche's duplicated InstanceExtensions/ValidationLayers
// helpers (present, near-identically, in both asche/util.go and
// dieselvk/extensions.go in vulkan-go-asche) into the one copy vkctx needs.

func enumerateInstanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if ret != vk.Success {
		return nil, newVkError("EnumerateInstanceExtensionProperties", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if ret != vk.Success {
		return nil, newVkError("EnumerateInstanceExtensionProperties", ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

func enumerateDeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if ret != vk.Success {
		return nil, newVkError("EnumerateDeviceExtensionProperties", ret)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if ret != vk.Success {
		return nil, newVkError("EnumerateDeviceExtensionProperties", ret)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

func enumerateValidationLayers() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if ret != vk.Success {
		return nil, newVkError("EnumerateInstanceLayerProperties", ret)
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if ret != vk.Success {
		return nil, newVkError("EnumerateInstanceLayerProperties", ret)
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// negotiateDeviceExtensions returns required plus whichever optional
// extensions (portability-subset, dynamic-rendering,
// synchronization2) the device actually advertises.
func negotiateDeviceExtensions(gpu vk.PhysicalDevice, extra []string) ([]string, error) {
	available, err := enumerateDeviceExtensions(gpu)
	if err != nil {
		return nil, err
	}
	avail := make(map[string]bool, len(available))
	for _, a := range available {
		avail[a] = true
	}

	out := append([]string{}, requiredDeviceExtensions...)
	out = append(out, extra...)
	for _, opt := range optionalDeviceExtensions {
		if avail[opt] {
			out = append(out, opt)
		}
	}
	return out, nil
}

func intersect(available, wanted []string) []string {
	set := make(map[string]bool, len(available))
	for _, a := range available {
		set[a] = true
	}
	var out []string
	for _, w := range wanted {
		if set[w] {
			out = append(out, w)
		}
	}
	return out
}
