package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoEntryPoint is returned when kernel source declares no @compute entry point.
var ErrNoEntryPoint = errors.New("shader: source declares no @compute entry point")

// shader is the implementation of the Shader interface.
// It holds everything the renderer needs to build a compute pipeline for one kernel.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindings                   map[int][]Binding
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader defines the interface for a pre-processed and parsed WGSL compute kernel. It exposes
// the kernel's key, expanded source, entry point, workgroup size and bind group layout.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Bindings returns the resources declared in a group, sorted by binding index.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - []Binding: the declared bindings, or nil if the group is not declared
	Bindings(group int) []Binding

	// BindGroupVarName retrieves the variable name for a given group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// EntryPoint returns the @compute entry point name.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the kernel's @workgroup_size, defaulting omitted dimensions to 1.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor built from the expanded source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the @oxy:group annotations expanded while building this shader.
	//
	// Returns:
	//   - []Annotation: the expanded group declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL kernel source.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the raw WGSL source, possibly containing @oxy: annotations
//   - pp: the pre-processor used to expand annotations, or nil to use the source as-is
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or no compute entry point is declared
func NewShader(key string, source string, pp PreProcessor) (Shader, error) {
	if source == "" {
		panic(fmt.Sprintf("shader: %s requires non-empty source", key))
	}
	s := &shader{key: key, source: source}
	if pp != nil {
		expanded, err := pp.Process(source)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", key, err)
		}
		s.source = expanded
		s.declarations = append([]Annotation(nil), pp.Declarations()...)
	}

	s.entryPoint = parseEntryPoint(s.source)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: %w", key, ErrNoEntryPoint)
	}
	s.workGroupSize = parseWorkgroupSize(s.source)
	s.bindGroupLayoutDescriptors, s.bindings = parseBindGroupLayouts(s.source)
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) Bindings(group int) []Binding {
	return s.bindings[group]
}

func (s *shader) BindGroupVarName(group, binding int) string {
	for _, b := range s.bindings[group] {
		if b.Index == binding {
			return b.Name
		}
	}
	return ""
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for _, b := range s.bindings[group] {
		if b.Name == varName {
			return b.Index, true
		}
	}
	return -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
