package gpu

import "testing"

func solidImage(w, h int, c [4]float64) *Image {
	img := &Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestGrayscaleKernelFullStrengthEqualizesChannels(t *testing.T) {
	d := NewSoftwareDevice()
	src := solidImage(4, 4, [4]float64{0.8, 0.4, 0.2, 1})
	out, err := d.RunKernel(KernelGrayscale, src, Params{Amount: 1})
	if err != nil {
		t.Fatalf("RunKernel: %v", err)
	}
	c := out.At(0, 0)
	if c[0] != c[1] || c[1] != c[2] {
		t.Errorf("expected R == G == B after full grayscale, got %v", c)
	}
}

func TestInvertKernelFullStrength(t *testing.T) {
	d := NewSoftwareDevice()
	src := solidImage(2, 2, [4]float64{0.25, 0.75, 1.0, 1})
	out, err := d.RunKernel(KernelInvert, src, Params{Amount: 1})
	if err != nil {
		t.Fatalf("RunKernel: %v", err)
	}
	c := out.At(0, 0)
	want := [3]float64{0.75, 0.25, 0.0}
	for i, w := range want {
		if diff := c[i] - w; diff > 1.0/255 || diff < -1.0/255 {
			t.Errorf("channel %d = %f, want ~%f", i, c[i], w)
		}
	}
}

func TestBlurKernelClampsRadius(t *testing.T) {
	d := NewSoftwareDevice()
	src := solidImage(8, 8, [4]float64{1, 1, 1, 1})
	out, err := d.RunKernel(KernelBlur, src, Params{Radius: 1000})
	if err != nil {
		t.Fatalf("RunKernel: %v", err)
	}
	if out.Width != src.Width || out.Height != src.Height {
		t.Fatalf("blur changed image dimensions: got %dx%d", out.Width, out.Height)
	}
	// A uniform solid-color image should stay (approximately) unchanged by blur.
	c := out.At(4, 4)
	for i := 0; i < 4; i++ {
		if diff := c[i] - 1.0; diff > 1.0/255 || diff < -1.0/255 {
			t.Errorf("component %d = %f, want ~1.0 on a uniform image", i, c[i])
		}
	}
}

func TestCompileAndRunShaderGrayscale(t *testing.T) {
	d := NewSoftwareDevice()
	handle, err := d.CompileShader(`
effect Gray {
    fn apply(uv: vec2, color: vec4, time: float) -> vec4 {
        let luma = color.r * 0.299 + color.g * 0.587 + color.b * 0.114;
        return vec4(luma, luma, luma, color.a);
    }
}`)
	if err != nil {
		t.Fatalf("CompileShader: %v", err)
	}
	src := solidImage(2, 2, [4]float64{0.6, 0.3, 0.1, 1})
	out, err := d.RunShader(handle, src, 0)
	if err != nil {
		t.Fatalf("RunShader: %v", err)
	}
	c := out.At(0, 0)
	if c[0] != c[1] || c[1] != c[2] {
		t.Errorf("expected grayscale output, got %v", c)
	}
}

func TestRunShaderUnknownHandle(t *testing.T) {
	d := NewSoftwareDevice()
	src := solidImage(1, 1, [4]float64{0, 0, 0, 1})
	if _, err := d.RunShader(ShaderHandle(999), src, 0); err == nil {
		t.Fatal("expected an error for an unregistered shader handle")
	}
}
