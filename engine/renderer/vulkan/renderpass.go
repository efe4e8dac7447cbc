package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbinder/engine/containers"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

const attachmentUnused = ^uint32(0)

// RenderPassKey describes a single-subpass render pass. Only color slots set
// in ColorMask are meaningful; the other slots are ignored by hashing and
// equality. A DepthFormat of vk.FormatUndefined means no depth attachment.
type RenderPassKey struct {
	ColorFormats  [VULKAN_MAX_COLOR_ATTACHMENTS]vk.Format
	ColorLoadOps  [VULKAN_MAX_COLOR_ATTACHMENTS]vk.AttachmentLoadOp
	ColorStoreOps [VULKAN_MAX_COLOR_ATTACHMENTS]vk.AttachmentStoreOp
	ColorMask     uint8
	// ResolveTargets marks the color slots that get a single-sampled resolve attachment.
	ResolveTargets uint8

	DepthFormat  vk.Format
	DepthLoadOp  vk.AttachmentLoadOp
	DepthStoreOp vk.AttachmentStoreOp

	Samples vk.SampleCountFlagBits
}

// SetColor populates color slot index.
func (k *RenderPassKey) SetColor(index int, format vk.Format, load vk.AttachmentLoadOp, store vk.AttachmentStoreOp) {
	k.ColorFormats[index] = format
	k.ColorLoadOps[index] = load
	k.ColorStoreOps[index] = store
	k.ColorMask |= 1 << index
}

func (k *RenderPassKey) hasDepth() bool {
	return k.DepthFormat != vk.FormatUndefined
}

func (k *RenderPassKey) multisampled() bool {
	return k.Samples > vk.SampleCount1Bit
}

type renderPassKeyPolicy struct{}

func (renderPassKeyPolicy) Equal(a, b RenderPassKey) bool {
	if a.ColorMask != b.ColorMask || a.Samples != b.Samples || a.DepthFormat != b.DepthFormat {
		return false
	}
	// Resolve targets only matter when the pass is multisampled.
	if a.multisampled() && a.ResolveTargets&a.ColorMask != b.ResolveTargets&b.ColorMask {
		return false
	}
	if a.hasDepth() && (a.DepthLoadOp != b.DepthLoadOp || a.DepthStoreOp != b.DepthStoreOp) {
		return false
	}
	for mask := a.ColorMask; mask != 0; mask &= mask - 1 {
		i := bits.TrailingZeros8(mask)
		if a.ColorFormats[i] != b.ColorFormats[i] || a.ColorLoadOps[i] != b.ColorLoadOps[i] || a.ColorStoreOps[i] != b.ColorStoreOps[i] {
			return false
		}
	}
	return true
}

func (renderPassKeyPolicy) Hash(k RenderPassKey) uint64 {
	h := newKeyHasher()
	h.word(uint64(k.ColorMask))
	h.word(uint64(k.Samples))
	h.word(uint64(k.DepthFormat))
	if k.multisampled() {
		h.word(uint64(k.ResolveTargets & k.ColorMask))
	}
	if k.hasDepth() {
		h.word(uint64(k.DepthLoadOp)<<32 | uint64(k.DepthStoreOp))
	}
	for mask := k.ColorMask; mask != 0; mask &= mask - 1 {
		i := bits.TrailingZeros8(mask)
		h.word(uint64(k.ColorFormats[i]))
		h.word(uint64(k.ColorLoadOps[i])<<32 | uint64(k.ColorStoreOps[i]))
	}
	return h.sum
}

// RenderPassCache owns render passes created from RenderPassKeys. It is safe
// for concurrent use. Evicted render passes are destroyed immediately, so the
// capacity must cover every render pass a frame in flight can reference.
//
// With capacity 0 nothing is retained: GetOrCreate returns a handle that has
// already been destroyed and must not be used.
type RenderPassCache struct {
	name    string
	device  Device
	cache   *containers.LRUCache[RenderPassKey, vk.RenderPass]
	onEvict func(vk.RenderPass)
}

func NewRenderPassCache(device Device, capacity int) *RenderPassCache {
	rc := &RenderPassCache{
		name:   uuid.New().String(),
		device: device,
	}
	rc.cache = containers.NewLRUCache[RenderPassKey, vk.RenderPass](capacity, renderPassKeyPolicy{}, func(_ RenderPassKey, renderpass vk.RenderPass) {
		if rc.onEvict != nil {
			rc.onEvict(renderpass)
		}
		device.DestroyRenderPass(renderpass)
	})
	return rc
}

// OnEvict registers fn to run right before a render pass is destroyed, on
// eviction and on Clear. fn runs with the cache locked and must not call back
// into it. Set it before the cache is shared.
func (rc *RenderPassCache) OnEvict(fn func(vk.RenderPass)) {
	rc.onEvict = fn
}

func (rc *RenderPassCache) GetOrCreate(key RenderPassKey) (vk.RenderPass, error) {
	return rc.cache.GetOrCreate(key, rc.create)
}

func (rc *RenderPassCache) create(key RenderPassKey) (vk.RenderPass, error) {
	if key.ColorMask == 0 && !key.hasDepth() {
		return nil, core.NewPreconditionError("RenderPassCache.GetOrCreate", fmt.Errorf("render pass has no attachments"))
	}
	renderpass, err := rc.device.CreateRenderPass(renderPassCreateInfo(&key))
	if err != nil {
		core.LogError("renderpass cache %s: %s", rc.name, err)
		return nil, err
	}
	core.LogDebug("renderpass cache %s: render pass created (colors %08b, depth %v)", rc.name, key.ColorMask, key.hasDepth())
	return renderpass, nil
}

func (rc *RenderPassCache) Clear() {
	rc.cache.Clear()
}

func (rc *RenderPassCache) Len() int {
	return rc.cache.Len()
}

func (rc *RenderPassCache) Stats() core.CacheStats {
	return rc.cache.Stats()
}

func renderPassCreateInfo(key *RenderPassKey) *vk.RenderPassCreateInfo {
	samples := key.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	var attachmentDescriptions []vk.AttachmentDescription

	// Color attachments keep their slot index in the subpass; holes are unused.
	colorCount := 0
	if key.ColorMask != 0 {
		colorCount = 8 - bits.LeadingZeros8(key.ColorMask)
	}
	colorAttachmentReferences := make([]vk.AttachmentReference, colorCount)
	for i := range colorAttachmentReferences {
		colorAttachmentReferences[i] = vk.AttachmentReference{Attachment: attachmentUnused}
		if key.ColorMask&(1<<i) == 0 {
			continue
		}
		initialLayout := vk.ImageLayoutUndefined
		if key.ColorLoadOps[i] == vk.AttachmentLoadOpLoad {
			initialLayout = vk.ImageLayoutColorAttachmentOptimal
		}
		colorAttachmentReferences[i] = vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.ColorFormats[i],
			Samples:        samples,
			LoadOp:         key.ColorLoadOps[i],
			StoreOp:        key.ColorStoreOps[i],
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	subpass.ColorAttachmentCount = uint32(colorCount)
	subpass.PColorAttachments = colorAttachmentReferences

	// Attachments used for multisampling colour attachments
	if key.multisampled() && key.ResolveTargets&key.ColorMask != 0 {
		resolveAttachmentReferences := make([]vk.AttachmentReference, colorCount)
		for i := range resolveAttachmentReferences {
			resolveAttachmentReferences[i] = vk.AttachmentReference{Attachment: attachmentUnused}
			if key.ColorMask&key.ResolveTargets&(1<<i) == 0 {
				continue
			}
			resolveAttachmentReferences[i] = vk.AttachmentReference{
				Attachment: uint32(len(attachmentDescriptions)),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}
			attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
				Format:         key.ColorFormats[i],
				Samples:        vk.SampleCount1Bit,
				LoadOp:         vk.AttachmentLoadOpDontCare,
				StoreOp:        vk.AttachmentStoreOpStore,
				StencilLoadOp:  vk.AttachmentLoadOpDontCare,
				StencilStoreOp: vk.AttachmentStoreOpDontCare,
				InitialLayout:  vk.ImageLayoutUndefined,
				FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
			})
		}
		subpass.PResolveAttachments = resolveAttachmentReferences
	}

	// Depth attachment, if there is one
	if key.hasDepth() {
		initialLayout := vk.ImageLayoutUndefined
		if key.DepthLoadOp == vk.AttachmentLoadOpLoad {
			initialLayout = vk.ImageLayoutDepthStencilAttachmentOptimal
		}
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.DepthFormat,
			Samples:        samples,
			LoadOp:         key.DepthLoadOp,
			StoreOp:        key.DepthStoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
			vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	return &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}
