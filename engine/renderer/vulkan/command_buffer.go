package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in render pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "not allocated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// VulkanCommandBuffer tracks the recording state of a command buffer the
// caller allocated.
type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(handle vk.CommandBuffer) *VulkanCommandBuffer {
	state := COMMAND_BUFFER_STATE_READY
	if handle == nil {
		state = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	return &VulkanCommandBuffer{
		Handle: handle,
		State:  state,
	}
}

func (v *VulkanCommandBuffer) Begin(
	device Device,
	is_single_use,
	is_renderpass_continue,
	is_simultaneous_use bool) error {

	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if is_single_use {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if is_renderpass_continue {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if is_simultaneous_use {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := device.BeginCommandBuffer(v.Handle, vBeginInfo); err != nil {
		core.LogError("failed to begin command buffer: %s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End(device Device) error {
	if err := device.EndCommandBuffer(v.Handle); err != nil {
		core.LogError("failed to end command buffer: %s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// EnterRenderPass and ExitRenderPass record that the caller issued
// vkCmdBeginRenderPass or vkCmdEndRenderPass.
func (v *VulkanCommandBuffer) EnterRenderPass() {
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) ExitRenderPass() {
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

func (v *VulkanCommandBuffer) isRecording() bool {
	return v.State == COMMAND_BUFFER_STATE_RECORDING || v.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

// CommitBindings realizes the current descriptor and pipeline keys and records
// the bind commands that are actually needed into cmd. Switching to another
// command buffer resets the bindings first, since bind state does not carry
// over between command buffers.
//
// Descriptor writes are always applied immediately here: a deferred write
// would land on sets that are already referenced by recorded commands.
func (b *VulkanBinder) CommitBindings(cmd *VulkanCommandBuffer) error {
	if cmd == nil || cmd.Handle == nil || !cmd.isRecording() {
		state := COMMAND_BUFFER_STATE_NOT_ALLOCATED
		if cmd != nil {
			state = cmd.State
		}
		return core.NewPreconditionError("CommitBindings", fmt.Errorf("command buffer is %s, not recording", state))
	}
	if b.lastCommandBuffer != cmd.Handle {
		b.ResetBindings()
		b.lastCommandBuffer = cmd.Handle
	}

	// The accessors clear their dirty flags even though nothing gets recorded
	// when either one fails, so both slots are marked dirty again.
	descriptors, err := b.GetOrCreateDescriptors(WriteImmediate)
	if err != nil {
		b.ResetBindings()
		return err
	}
	pipeline, rebindPipeline, err := b.GetOrCreatePipeline()
	if err != nil {
		b.ResetBindings()
		return err
	}

	if rebindPipeline {
		b.device.CmdBindPipeline(cmd.Handle, pipeline)
	}
	if descriptors.Rebind {
		b.device.CmdBindDescriptorSets(cmd.Handle, descriptors.Layout, descriptors.Sets[:])
	}
	return nil
}
