// annotations.go defines the annotation types and parser for the Oxy WGSL kernel
// pre-processor. Annotations are single-line WGSL comments prefixed with @oxy: that
// inject shared WGSL snippets and generate bind group declarations for kernels.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects the WGSL source of a registered snippet at the
	// annotation site. Snippets carry struct definitions or shared functions.
	//
	// Syntax: //@oxy:include <snippet>
	//
	// Example: //@oxy:include trace_uniform
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// whose type is resolved from the snippet registry.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <snippet>
	//
	// Example: //@oxy:group 0 0 uniform params trace_uniform
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AnnotationArg is a typed string used as an annotation argument. Snippet keys and
// address space identifiers are both AnnotationArgs.
type AnnotationArg string

const (
	// AnnotationArgUniform emits var<uniform>.
	AnnotationArgUniform AnnotationArg = "uniform"

	// AnnotationArgStorageRead emits var<storage, read>.
	AnnotationArgStorageRead AnnotationArg = "storage_read"

	// AnnotationArgStorageReadWrite emits var<storage, read_write>.
	AnnotationArgStorageReadWrite AnnotationArg = "storage_read_write"
)

// validAddressSpaces lists the address space arguments accepted by @oxy:group.
var validAddressSpaces = []AnnotationArg{
	AnnotationArgUniform,
	AnnotationArgStorageRead,
	AnnotationArgStorageReadWrite,
}

// Annotation represents a single parsed @oxy: annotation from a WGSL source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = snippet key
	//   - group:   [0] = address space, [1] = var name, [2] = snippet key (optionally wrapped in array<>)
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group annotations. Nil for include annotations.
	Binding *int
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
// Snippet keys are not validated here; the pre-processor resolves them against its registry.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, name, type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %w", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %w", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}
