package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// scalarLayouts holds the host-shareable scalar types kernels may place in buffers.
var scalarLayouts = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},
	"f16":  {2, 2},
}

// shorthandScalars maps the vecNf / matCxRf suffix letter to its scalar type.
var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// vectorLayout returns the layout of an n-component vector of scalar.
// vec3 aligns like vec4.
func vectorLayout(n uint64, scalar wgslTypeLayout) wgslTypeLayout {
	align := scalar.align * 2
	if n > 2 {
		align = scalar.align * 4
	}
	return wgslTypeLayout{size: n * scalar.size, align: align}
}

// builtinLayout resolves scalars, vectors, matrices and atomics, accepting both the
// vec3<f32> and the vec3f spellings.
func builtinLayout(typeName string) (wgslTypeLayout, bool) {
	if l, ok := scalarLayouts[typeName]; ok {
		return l, true
	}
	base, param := splitTypeParams(typeName)
	if param == "" && len(base) > 1 {
		if s, ok := shorthandScalars[base[len(base)-1]]; ok && (strings.HasPrefix(base, "vec") || strings.HasPrefix(base, "mat")) {
			base, param = base[:len(base)-1], s
		}
	}
	scalar, ok := scalarLayouts[param]
	if !ok {
		return wgslTypeLayout{}, false
	}

	switch {
	case base == "atomic":
		if param == "u32" || param == "i32" {
			return scalar, true
		}
	case len(base) == 4 && strings.HasPrefix(base, "vec"):
		n := uint64(base[3] - '0')
		if n >= 2 && n <= 4 {
			return vectorLayout(n, scalar), true
		}
	case len(base) == 6 && strings.HasPrefix(base, "mat") && base[4] == 'x':
		cols, rows := uint64(base[3]-'0'), uint64(base[5]-'0')
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
			break
		}
		col := vectorLayout(rows, scalar)
		return wgslTypeLayout{size: cols * roundUpAlign(col.align, col.size), align: col.align}, true
	}
	return wgslTypeLayout{}, false
}

// resolveTypeLayout resolves a WGSL type to its size and alignment using builtin types
// and the struct layouts computed so far. A runtime-sized array resolves to one element
// stride, which is the smallest useful binding for it.
//
// Parameters:
//   - typeName: the WGSL type name, e.g. "f32", "TraceUniform", "array<vec4<f32>, 16>"
//   - knownTypes: struct layouts resolved so far
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := builtinLayout(typeName); ok {
		return l, true
	}
	if l, ok := knownTypes[typeName]; ok {
		return l, true
	}

	elem, count, isArray := splitArrayType(typeName)
	if !isArray {
		return wgslTypeLayout{}, false
	}
	el, ok := resolveTypeLayout(elem, knownTypes)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(el.align, el.size)
	if count == 0 {
		return wgslTypeLayout{stride, el.align}, true
	}
	return wgslTypeLayout{count * stride, el.align}, true
}

// splitArrayType splits array<T, N> into (T, N) and array<T> into (T, 0).
func splitArrayType(typeName string) (elem string, count uint64, ok bool) {
	base, params := splitTypeParams(typeName)
	if base != "array" || params == "" {
		return "", 0, false
	}
	parts := splitAtTopLevelCommas(params)
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return elem, 0, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || n == 0 {
		return "", 0, false
	}
	return elem, n, true
}

// computeStructLayout places each field at its next aligned offset. A trailing
// runtime-sized array contributes nothing beyond the fixed prefix, unless it is the only
// member, in which case the struct is one element wide.
func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	align := uint64(1)

	for i, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		if _, count, isArray := splitArrayType(field.typeName); isArray && count == 0 {
			if i != len(ps.fields)-1 {
				return wgslTypeLayout{}, false
			}
			el, ok := resolveTypeLayout(field.typeName, knownTypes)
			if !ok {
				return wgslTypeLayout{}, false
			}
			align = max(align, el.align)
			if offset == 0 {
				return el, true
			}
			return wgslTypeLayout{roundUpAlign(align, offset), align}, true
		}

		fl, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		align = max(align, fl.align)
	}
	return wgslTypeLayout{roundUpAlign(align, offset), align}, true
}

// computeStructSizes resolves every parsed struct, repeating passes until structs that
// nest other structs have their dependencies available. Structs that never resolve are
// left out of the result.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	pending := append([]parsedStruct(nil), structs...)

	for len(pending) > 0 {
		var unresolved []parsedStruct
		for _, ps := range pending {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				unresolved = append(unresolved, ps)
			}
		}
		if len(unresolved) == len(pending) {
			break
		}
		pending = unresolved
	}
	return resolved
}

// classifyResource builds the compute-stage layout entry for one kernel resource.
// Buffers are classified by address space, textures by type name. Samplers are never
// bound by the kernels and stay unclassified.
//
// Parameters:
//   - binding: the @binding(N) index
//   - addressSpace: "uniform", "storage, read" or "storage, read_write"; empty for textures
//   - typeName: the declared WGSL type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func classifyResource(binding uint32, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := splitTypeParams(typeName)
		entry.StorageTexture.ViewDimension = wgslStorageTextureDimMap[base]
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = wgslTexelFormatMap[strings.TrimSpace(format)]
		entry.StorageTexture.Access = wgslStorageAccessMap[strings.TrimSpace(access)]
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		if info, ok := wgslSampledTextureMap[base]; ok {
			entry.Texture.ViewDimension = info.viewDimension
			entry.Texture.Multisampled = info.multisampled
		}
		entry.Texture.SampleType = wgslSampleTypeMap[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32"). Types without
// parameters return an empty params string.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes // and (nested) /* */ comments in a single pass. Newlines are
// kept so regex matches still line up with the source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case depth > 0 && c == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte(c)
			}
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits s at commas outside angle brackets, so the comma in
// array<vec4<f32>, 16> does not separate fields.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
