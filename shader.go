package hellovk

import (
	"embed"
	"encoding/binary"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

//go:embed shaders/*.wgsl
var shaderFiles embed.FS

// DefaultShaders serves the bundled triangle shaders under DefaultVertexShader
// and DefaultFragmentShader.
var DefaultShaders ShaderSource = FSShaderSource{FS: shaderFiles}

// ShaderSource returns SPIR-V for a shader asset path.
type ShaderSource interface {
	Load(path string) ([]byte, error)
}

// FSShaderSource reads assets from FS. WGSL sources are compiled to SPIR-V;
// anything else is returned as stored.
type FSShaderSource struct {
	FS fs.FS
}

func (s FSShaderSource) Load(name string) ([]byte, error) {
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, errors.Wrapf(ErrShaderUnavailable, "%s: %v", name, err)
	}
	return decodeShader(name, data)
}

// OSShaderSource reads assets from the operating system's file system, so
// paths may be absolute or relative to the working directory.
type OSShaderSource struct{}

func (OSShaderSource) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(ErrShaderUnavailable, "%s: %v", name, err)
	}
	return decodeShader(name, data)
}

func isWGSL(name string) bool {
	return strings.EqualFold(path.Ext(name), ".wgsl")
}

const spirvMagic = 0x07230203

func decodeShader(name string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.Wrapf(ErrShaderUnavailable, "%s: empty file", name)
	}
	if isWGSL(name) {
		spirv, err := naga.Compile(string(data))
		if err != nil {
			return nil, errors.Wrapf(err, "compile %s", name)
		}
		data = spirv
	}
	if err := checkSPIRV(data); err != nil {
		return nil, errors.Wrapf(ErrShaderUnavailable, "%s: %v", name, err)
	}
	return data, nil
}

// checkSPIRV rejects code the driver would read past the end of: the module
// is handed over as whole 32-bit words and starts with the magic number.
func checkSPIRV(code []byte) error {
	if len(code) < 4 || len(code)%4 != 0 {
		return errors.Errorf("%d bytes is not a whole number of SPIR-V words", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return errors.Errorf("bad SPIR-V magic 0x%08x", magic)
	}
	return nil
}

// entryPoint names the function a stage starts at. Precompiled SPIR-V uses
// main; the bundled WGSL names its entry points per stage.
func entryPoint(name string, stage vk.ShaderStageFlagBits) string {
	if !isWGSL(name) {
		return "main"
	}
	if stage == vk.ShaderStageFragmentBit {
		return "fs_main"
	}
	return "vs_main"
}
