package pipeline

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/johnpgr/vkengine/internal/verr"
)

// MaxFramesInFlight bounds the descriptor pool and the number of sets
// allocated up front, one per frame slot (sets are
// allocated once at init, statically bound to that frame's SSBO).
const MaxFramesInFlight = 2

// Descriptors owns the set-0 layout binding a QuadCommand SSBO at
// binding 0, the pool, and one set per frame slot.
type Descriptors struct {
	device vk.Device
	Layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	Sets   [MaxFramesInFlight]vk.DescriptorSet
}

// NewDescriptors allocates the layout, a pool sized for MaxFramesInFlight
// storage-buffer descriptors, and binds each frame's SSBO to its set.
func NewDescriptors(device vk.Device, ssbos []vk.Buffer, ssboSize vk.DeviceSize) (*Descriptors, error) {
	if len(ssbos) != MaxFramesInFlight {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("expected %d frame SSBOs, got %d", MaxFramesInFlight, len(ssbos)))
	}

	d := &Descriptors{device: device}

	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}},
	}, nil, &layout)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateDescriptorSetLayout: %d", ret))
	}
	d.Layout = layout

	var pool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       MaxFramesInFlight,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: MaxFramesInFlight,
		}},
	}, nil, &pool)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkCreateDescriptorPool: %d", ret))
	}
	d.pool = pool

	layouts := make([]vk.DescriptorSetLayout, MaxFramesInFlight)
	for i := range layouts {
		layouts[i] = layout
	}
	sets := make([]vk.DescriptorSet, MaxFramesInFlight)
	ret = vk.AllocateDescriptorSets(device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: MaxFramesInFlight,
		PSetLayouts:        layouts,
	}, sets)
	if ret != vk.Success {
		return nil, verr.New(verr.InitFailure, fmt.Errorf("vkAllocateDescriptorSets: %d", ret))
	}

	for i, set := range sets {
		d.Sets[i] = set
		vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: ssbos[i],
				Offset: 0,
				Range:  ssboSize,
			}},
		}}, 0, nil)
	}

	return d, nil
}

func (d *Descriptors) Destroy() {
	if d.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(d.device, d.pool, nil)
	}
	if d.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(d.device, d.Layout, nil)
	}
}
