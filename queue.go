package hellovk

import (
	vk "github.com/vulkan-go/vulkan"
)

// QueueFamilyIndices records the family chosen for each role. The two roles may
// name the same family.
type QueueFamilyIndices struct {
	Graphics    uint32
	Present     uint32
	HasGraphics bool
	HasPresent  bool
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.HasGraphics && q.HasPresent
}

// Unique lists the distinct families in role order, graphics first
func (q QueueFamilyIndices) Unique() []uint32 {
	var out []uint32
	if q.HasGraphics {
		out = append(out, q.Graphics)
	}
	if q.HasPresent && (!q.HasGraphics || q.Present != q.Graphics) {
		out = append(out, q.Present)
	}
	return out
}

// Separate is true when graphics and present use different families
func (q QueueFamilyIndices) Separate() bool {
	return q.IsComplete() && q.Graphics != q.Present
}

// FindQueueFamilies scans families in index order. The first family with the
// graphics bit and the first family that can present are recorded
// independently; the scan stops once both are known. presentSupport is only
// asked about families that are still needed. families must already be
// dereferenced.
func FindQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(family uint32) (bool, error)) (QueueFamilyIndices, error) {
	var indices QueueFamilyIndices
	for i, family := range families {
		index := uint32(i)
		if !indices.HasGraphics && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = index
			indices.HasGraphics = true
		}
		if !indices.HasPresent {
			ok, err := presentSupport(index)
			if err != nil {
				return indices, err
			}
			if ok {
				indices.Present = index
				indices.HasPresent = true
			}
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices, nil
}

// Gets the device queue create infos, one per distinct family with a single queue each
func (q QueueFamilyIndices) CreateInfos() []vk.DeviceQueueCreateInfo {
	families := q.Unique()
	infos := make([]vk.DeviceQueueCreateInfo, len(families))
	priority := float32(1.0)
	for index, family := range families {
		infos[index] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{priority},
		}
	}
	return infos
}
