// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package memgpu

import "sync"

// Kernel is a software compute shader: the groups*/local size this
// package uses are whatever the caller agrees on with the kernel, since
// memgpu does not interpret SPIR-V. dp is the descriptor pool the
// command buffer had bound via SetDescriptorPool at the time Dispatch
// was called, holding whatever dp.Write stored into its sets.
type Kernel func(dp *DescriptorPool, groupsX, groupsY, groupsZ int)

var (
	kernelMu  sync.Mutex
	kernelTab = map[string]Kernel{}
)

// RegisterKernel associates a compute kernel with a shader entry point
// name. A ComputePipelineInfo whose Stage.EntryPoint matches name will
// run fn on every Dispatch. Test code calls this before building the
// pipeline; it is the software-backend equivalent of compiling SPIR-V,
// since memgpu never interprets shader bytecode.
func RegisterKernel(name string, fn Kernel) {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	kernelTab[name] = fn
}

func lookupKernel(name string) (Kernel, bool) {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	k, ok := kernelTab[name]
	return k, ok
}
