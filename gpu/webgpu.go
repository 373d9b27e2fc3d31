package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Sansa-Organisation/vidra-sub000/effectdsl"
)

// WebGPUDevice compiles WGSL shader modules on real hardware through
// wgpu-native bindings. It is optional: the render pipeline defaults to
// SoftwareDevice and only uses this backend when a caller sets it as the
// Pipeline's Device. Unlike SoftwareDevice, its CompileShader accepts
// hand-authored WGSL, since it hands the text to a real shader compiler
// instead of interpreting the DSL AST. It does not execute shaders:
// RunShader returns an error for every call, so this device produces no
// images from either built-in kernels or custom shaders.
type WebGPUDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu      sync.Mutex
	nextID  ShaderHandle
	shaders map[ShaderHandle]*wgpu.ShaderModule
}

// NewWebGPUDevice requests an adapter and device from the default wgpu
// instance. Returns an error if no compatible adapter is available, which
// is expected in headless CI environments -- callers should fall back to
// SoftwareDevice in that case.
func NewWebGPUDevice() (*WebGPUDevice, error) {
	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: requesting adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: requesting device: %w", err)
	}
	return &WebGPUDevice{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		shaders:  make(map[ShaderHandle]*wgpu.ShaderModule),
	}, nil
}

// RunKernel for the real backend lowers the kernel's effectdsl program in
// builtinKernelDSL to WGSL with effectdsl's codegen, then runs it like any
// compiled custom shader. This keeps one execution path (CompileShader +
// RunShader) for both built-ins and user shaders. Only Grayscale and
// Invert have entries; every other kind returns an error.
func (d *WebGPUDevice) RunKernel(kind KernelKind, src *Image, p Params) (*Image, error) {
	source, ok := builtinKernelDSL[kind]
	if !ok {
		return nil, fmt.Errorf("gpu: unknown kernel kind %d", kind)
	}
	_, wgsl, err := effectdsl.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("gpu: compiling built-in kernel: %w", err)
	}
	handle, err := d.CompileShader(wgsl)
	if err != nil {
		return nil, err
	}
	return d.RunShader(handle, src, p.Amount)
}

func (d *WebGPUDevice) CompileShader(source string) (ShaderHandle, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "vidra-effect",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return 0, fmt.Errorf("gpu: compiling shader module: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	handle := d.nextID
	d.shaders[handle] = module
	return handle, nil
}

// RunShader checks that handle came from CompileShader and then returns an
// error: this backend has no offscreen dispatch and readback path, so no
// compute pass runs and no image is produced.
func (d *WebGPUDevice) RunShader(handle ShaderHandle, src *Image, timeSeconds float64) (*Image, error) {
	d.mu.Lock()
	_, ok := d.shaders[handle]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("gpu: unknown shader handle %d", handle)
	}
	return nil, fmt.Errorf("gpu: WebGPUDevice.RunShader requires a live wgpu surface/texture target and is not wired to an offscreen readback path in this build; use SoftwareDevice for headless rendering")
}

// Release frees the underlying wgpu resources.
func (d *WebGPUDevice) Release() {
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

// builtinKernelDSL maps the Grayscale and Invert kernels to effectdsl
// source strings using the same formulas as grayscalePixel/invertPixel in
// software.go; the other built-in kernels have no entry.
var builtinKernelDSL = map[KernelKind]string{
	KernelGrayscale: `
effect Grayscale {
    param strength: float;
    fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
        let luma = color.r * 0.299 + color.g * 0.587 + color.b * 0.114;
        let gray = vec4(luma, luma, luma, color.a);
        return mix(color, gray, strength);
    }
}`,
	KernelInvert: `
effect Invert {
    param strength: float;
    fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
        let inverted = vec4(1.0 - color.r, 1.0 - color.g, 1.0 - color.b, color.a);
        return mix(color, inverted, strength);
    }
}`,
}
