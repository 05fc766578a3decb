package gpu

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/elements.wgsl.tmpl
var elementsShaderTemplate string

var elementsShader = template.Must(template.New("elements").Parse(elementsShaderTemplate))

// firstAtlasBinding is the binding of atlas slot 0. Bindings 0 and 1 hold
// the uniforms and the sampler.
const firstAtlasBinding = 2

type atlasBinding struct {
	Slot    int
	Binding int
}

// ShaderVariant selects the fragment output of the element shader.
type ShaderVariant int

const (
	// VariantScreen outputs premultiplied element colors.
	VariantScreen ShaderVariant = iota
	// VariantPicking outputs encoded element indexes and discards
	// transparent fragments.
	VariantPicking
)

func (v ShaderVariant) String() string {
	if v == VariantPicking {
		return "picking"
	}
	return "screen"
}

// GenerateShader returns the WGSL source of the element shader for the
// given number of atlas texture slots.
func GenerateShader(slots int, variant ShaderVariant) (string, error) {
	if slots < 1 {
		return "", fmt.Errorf("gpu: %d atlas slots, need at least one", slots)
	}
	data := struct {
		Slots    int
		Variant  ShaderVariant
		Picking  bool
		Bindings []atlasBinding
	}{
		Slots:   slots,
		Variant: variant,
		Picking: variant == VariantPicking,
	}
	for i := range slots {
		data.Bindings = append(data.Bindings, atlasBinding{Slot: i, Binding: firstAtlasBinding + i})
	}

	var sb strings.Builder
	if err := elementsShader.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("generate %s shader: %w", variant, err)
	}
	return sb.String(), nil
}

// compileSPIRV compiles WGSL to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// shaderSource returns the module source for a backend. Vulkan takes the
// SPIR-V compiled here, so a bad shader fails before any pipeline exists.
// Other backends translate WGSL themselves.
func shaderSource(wgsl string, variant gputypes.Backend) (hal.ShaderSource, error) {
	if variant != gputypes.BackendVulkan {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := compileSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return hal.ShaderSource{SPIRV: words}, nil
}
