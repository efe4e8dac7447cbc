package vulkan

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

var (
	handleMutex sync.Mutex
	handleSlots []*uint64
)

// fakeHandle returns a unique non-null pointer that stays valid for the whole
// test binary, so it can stand in for any Vulkan handle.
func fakeHandle() unsafe.Pointer {
	handleMutex.Lock()
	defer handleMutex.Unlock()
	slot := new(uint64)
	handleSlots = append(handleSlots, slot)
	return unsafe.Pointer(slot)
}

func newBuffer() vk.Buffer             { return vk.Buffer(fakeHandle()) }
func newImageView() vk.ImageView       { return vk.ImageView(fakeHandle()) }
func newSampler() vk.Sampler           { return vk.Sampler(fakeHandle()) }
func newShaderModule() vk.ShaderModule { return vk.ShaderModule(fakeHandle()) }
func newRenderPass() vk.RenderPass     { return vk.RenderPass(fakeHandle()) }
func newCommandBuffer() vk.CommandBuffer {
	return vk.CommandBuffer(fakeHandle())
}

// fakeDevice implements Device in memory. It tracks live handles per kind,
// counts calls and captures create infos for inspection.
type fakeDevice struct {
	mu sync.Mutex

	live           map[unsafe.Pointer]string
	calls          map[string]int
	doubleDestroys int

	pipelineInfos    []*vk.GraphicsPipelineCreateInfo
	renderPassInfos  []*vk.RenderPassCreateInfo
	framebufferInfos []*vk.FramebufferCreateInfo
	poolInfo         *vk.DescriptorPoolCreateInfo
	writes           [][]vk.WriteDescriptorSet

	boundPipelines []vk.Pipeline
	boundSets      [][]vk.DescriptorSet

	poolCapacity uint32
	poolUsed     uint32

	failPipeline    error
	failRenderPass  error
	failFramebuffer error
	failBegin       error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		live:  make(map[unsafe.Pointer]string),
		calls: make(map[string]int),
	}
}

func (f *fakeDevice) mint(kind string) unsafe.Pointer {
	p := fakeHandle()
	f.live[p] = kind
	return p
}

func (f *fakeDevice) release(p unsafe.Pointer) {
	if _, ok := f.live[p]; !ok {
		f.doubleDestroys++
		return
	}
	delete(f.live, p)
}

func (f *fakeDevice) liveCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.live {
		if k == kind {
			n++
		}
	}
	return n
}

func (f *fakeDevice) isLive(p unsafe.Pointer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.live[p]
	return ok
}

func (f *fakeDevice) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateDescriptorSetLayout"]++
	return vk.DescriptorSetLayout(f.mint("descriptor_set_layout")), nil
}

func (f *fakeDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyDescriptorSetLayout"]++
	f.release(unsafe.Pointer(layout))
}

func (f *fakeDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreatePipelineLayout"]++
	return vk.PipelineLayout(f.mint("pipeline_layout")), nil
}

func (f *fakeDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyPipelineLayout"]++
	f.release(unsafe.Pointer(layout))
}

func (f *fakeDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateDescriptorPool"]++
	f.poolInfo = info
	f.poolCapacity = info.MaxSets
	f.poolUsed = 0
	return vk.DescriptorPool(f.mint("descriptor_pool")), nil
}

func (f *fakeDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyDescriptorPool"]++
	f.release(unsafe.Pointer(pool))
	// Destroying the pool frees its sets.
	for p, kind := range f.live {
		if kind == "descriptor_set" {
			delete(f.live, p)
		}
	}
	f.poolUsed = 0
}

func (f *fakeDevice) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AllocateDescriptorSets"]++
	if f.poolUsed+info.DescriptorSetCount > f.poolCapacity {
		return nil, &core.NativeError{Call: "vkAllocateDescriptorSets", Result: "VK_ERROR_OUT_OF_POOL_MEMORY"}
	}
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	for i := range sets {
		sets[i] = vk.DescriptorSet(f.mint("descriptor_set"))
	}
	f.poolUsed += info.DescriptorSetCount
	return sets, nil
}

func (f *fakeDevice) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["FreeDescriptorSets"]++
	for _, s := range sets {
		f.release(unsafe.Pointer(s))
	}
	f.poolUsed -= uint32(len(sets))
}

func (f *fakeDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateDescriptorSets"]++
	f.writes = append(f.writes, writes)
}

func (f *fakeDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateGraphicsPipeline"]++
	if f.failPipeline != nil {
		return nil, f.failPipeline
	}
	f.pipelineInfos = append(f.pipelineInfos, info)
	return vk.Pipeline(f.mint("pipeline")), nil
}

func (f *fakeDevice) DestroyPipeline(pipeline vk.Pipeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyPipeline"]++
	f.release(unsafe.Pointer(pipeline))
}

func (f *fakeDevice) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateRenderPass"]++
	if f.failRenderPass != nil {
		return nil, f.failRenderPass
	}
	f.renderPassInfos = append(f.renderPassInfos, info)
	return vk.RenderPass(f.mint("render_pass")), nil
}

func (f *fakeDevice) DestroyRenderPass(renderpass vk.RenderPass) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyRenderPass"]++
	f.release(unsafe.Pointer(renderpass))
}

func (f *fakeDevice) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateFramebuffer"]++
	if f.failFramebuffer != nil {
		return nil, f.failFramebuffer
	}
	f.framebufferInfos = append(f.framebufferInfos, info)
	return vk.Framebuffer(f.mint("framebuffer")), nil
}

func (f *fakeDevice) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DestroyFramebuffer"]++
	f.release(unsafe.Pointer(framebuffer))
}

func (f *fakeDevice) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["BeginCommandBuffer"]++
	return f.failBegin
}

func (f *fakeDevice) EndCommandBuffer(cmd vk.CommandBuffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["EndCommandBuffer"]++
	return nil
}

func (f *fakeDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CmdBindPipeline"]++
	f.boundPipelines = append(f.boundPipelines, pipeline)
}

func (f *fakeDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CmdBindDescriptorSets"]++
	f.boundSets = append(f.boundSets, append([]vk.DescriptorSet(nil), sets...))
}

var _ Device = (*fakeDevice)(nil)
