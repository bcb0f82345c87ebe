package filter

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/naga"
)

//go:embed shaders/isolate.wgsl
var isolateWGSL string

// ErrUnsupportedBackend is returned when the GPU program cannot be built.
var ErrUnsupportedBackend = errors.New("unsupported rendering backend")

// UniformSize is the byte size of the shader's Params uniform block.
const UniformSize = 48

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// Program is the GPU rendition of Draw: a WGSL vertex/fragment pair and its
// SPIR-V compilation.
type Program struct {
	WGSL  string
	SPIRV []byte
}

// WGSLSource returns the embedded shader source.
func WGSLSource() string {
	return isolateWGSL
}

// CompileProgram compiles the embedded shader to SPIR-V. Any failure is
// reported as ErrUnsupportedBackend; callers fall back to the CPU path.
func CompileProgram() (*Program, error) {
	if isolateWGSL == "" {
		return nil, fmt.Errorf("%w: shader source is empty", ErrUnsupportedBackend)
	}

	spirv, err := naga.Compile(isolateWGSL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBackend, err)
	}
	if len(spirv) < 4 || binary.LittleEndian.Uint32(spirv) != spirvMagic {
		return nil, fmt.Errorf("%w: compiler produced invalid SPIR-V", ErrUnsupportedBackend)
	}

	return &Program{WGSL: isolateWGSL, SPIRV: spirv}, nil
}

// Words returns the SPIR-V module as little-endian 32-bit words.
func (p *Program) Words() []uint32 {
	words := make([]uint32, len(p.SPIRV)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(p.SPIRV[i*4:])
	}
	return words
}

// UniformBytes packs p and the letterbox scale into the shader's Params block.
func UniformBytes(p Params, s Scale) []byte {
	fields := [UniformSize / 4]float32{
		p.Band.HueMin, p.Band.HueMax, p.Band.SatMin, p.Band.SatMax,
		p.Blend.Desaturate, p.Blend.Highlight, p.View.Zoom, 0,
		p.View.Center.X, p.View.Center.Y, s.X, s.Y,
	}
	buf := make([]byte, UniformSize)
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
