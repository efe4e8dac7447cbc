package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// RasterState is the fixed-function state baked into a pipeline.
type RasterState struct {
	PolygonMode             vk.PolygonMode
	CullMode                vk.CullModeFlags
	FrontFace               vk.FrontFace
	RasterizerDiscard       bool
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32
	DepthBiasSlopeFactor    float32

	BlendEnable         bool
	SrcColorBlendFactor vk.BlendFactor
	DstColorBlendFactor vk.BlendFactor
	ColorBlendOp        vk.BlendOp
	SrcAlphaBlendFactor vk.BlendFactor
	DstAlphaBlendFactor vk.BlendFactor
	AlphaBlendOp        vk.BlendOp
	ColorWriteMask      vk.ColorComponentFlags
	// ColorTargetCount is the number of color attachments the fragment stage writes.
	ColorTargetCount uint8

	DepthTestEnable   bool
	DepthWriteEnable  bool
	DepthCompareOp    vk.CompareOp
	StencilTestEnable bool

	RasterizationSamples vk.SampleCountFlagBits
}

// DefaultRasterState is opaque, back-face culled, depth tested geometry
// writing RGBA to a single single-sampled color target.
func DefaultRasterState() RasterState {
	return RasterState{
		PolygonMode:         vk.PolygonModeFill,
		CullMode:            vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:           vk.FrontFaceCounterClockwise,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		ColorTargetCount:     1,
		DepthTestEnable:      true,
		DepthWriteEnable:     true,
		DepthCompareOp:       vk.CompareOpLess,
		RasterizationSamples: vk.SampleCount1Bit,
	}
}

// equal compares like ==, except that a NaN depth bias factor matches any other
// NaN so a key holding one still finds itself.
func (r RasterState) equal(o RasterState) bool {
	if !sameFactor(r.DepthBiasConstantFactor, o.DepthBiasConstantFactor) || !sameFactor(r.DepthBiasSlopeFactor, o.DepthBiasSlopeFactor) {
		return false
	}
	r.DepthBiasConstantFactor, r.DepthBiasSlopeFactor = 0, 0
	o.DepthBiasConstantFactor, o.DepthBiasSlopeFactor = 0, 0
	return r == o
}

func sameFactor(a, b float32) bool {
	return a == b || (a != a && b != b)
}

// VertexAttribute mirrors vk.VertexInputAttributeDescription without the
// binding's hidden bookkeeping, so it can live inside a comparable key.
// A zero Format marks an unused slot.
type VertexAttribute struct {
	Location uint32
	Binding  uint32
	Format   vk.Format
	Offset   uint32
}

// VertexBuffer describes a vertex buffer binding. A zero Stride marks an unused slot.
type VertexBuffer struct {
	Binding uint32
	Stride  uint32
}

type VertexArray struct {
	Attributes [VULKAN_BINDER_MAX_VERTEX_ATTRIBUTES]VertexAttribute
	Buffers    [VULKAN_BINDER_MAX_VERTEX_ATTRIBUTES]VertexBuffer
}

// ProgramBundle is a vertex/fragment shader pair. A nil Fragment module makes
// a depth-only pipeline.
type ProgramBundle struct {
	Vertex   vk.ShaderModule
	Fragment vk.ShaderModule
}

// PipelineKey holds every input to pipeline creation. Two equal keys always
// describe the same pipeline. It contains only plain values and handles, so
// whole-struct equality is exact apart from NaN depth bias factors.
type PipelineKey struct {
	Shaders    [2]vk.ShaderModule
	Raster     RasterState
	RenderPass vk.RenderPass
	Topology   vk.PrimitiveTopology
	Vertex     VertexArray
}

type pipelineKeyPolicy struct{}

func (pipelineKeyPolicy) Equal(a, b PipelineKey) bool {
	if !a.Raster.equal(b.Raster) {
		return false
	}
	a.Raster, b.Raster = RasterState{}, RasterState{}
	return a == b
}

func (pipelineKeyPolicy) Hash(k PipelineKey) uint64 {
	h := newKeyHasher()
	h.handle(unsafe.Pointer(k.Shaders[0]))
	h.handle(unsafe.Pointer(k.Shaders[1]))

	r := &k.Raster
	h.word(uint64(r.PolygonMode))
	h.word(uint64(r.CullMode))
	h.word(uint64(r.FrontFace))
	h.flag(r.RasterizerDiscard)
	h.flag(r.DepthBiasEnable)
	h.float(r.DepthBiasConstantFactor)
	h.float(r.DepthBiasSlopeFactor)
	h.flag(r.BlendEnable)
	h.word(uint64(r.SrcColorBlendFactor))
	h.word(uint64(r.DstColorBlendFactor))
	h.word(uint64(r.ColorBlendOp))
	h.word(uint64(r.SrcAlphaBlendFactor))
	h.word(uint64(r.DstAlphaBlendFactor))
	h.word(uint64(r.AlphaBlendOp))
	h.word(uint64(r.ColorWriteMask))
	h.word(uint64(r.ColorTargetCount))
	h.flag(r.DepthTestEnable)
	h.flag(r.DepthWriteEnable)
	h.word(uint64(r.DepthCompareOp))
	h.flag(r.StencilTestEnable)
	h.word(uint64(r.RasterizationSamples))

	h.handle(unsafe.Pointer(k.RenderPass))
	h.word(uint64(k.Topology))
	for i := range k.Vertex.Attributes {
		a := &k.Vertex.Attributes[i]
		h.word(uint64(a.Location)<<32 | uint64(a.Binding))
		h.word(uint64(a.Format)<<32 | uint64(a.Offset))
	}
	for i := range k.Vertex.Buffers {
		b := &k.Vertex.Buffers[i]
		h.word(uint64(b.Binding)<<32 | uint64(b.Stride))
	}
	return h.sum
}
