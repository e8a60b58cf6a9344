// pre_processor.go implements the Oxy WGSL kernel pre-processor. It scans kernel
// source for @oxy: annotations and replaces them with registered WGSL snippets or
// generated bind group declarations.
package shader

import (
	"fmt"
	"strings"
)

// RegistryEntry pairs a WGSL snippet with the type name it declares, if any.
type RegistryEntry struct {
	// Source is the raw WGSL text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations (e.g. "TraceUniform").
	// Function-only snippets leave it empty and cannot be used with @oxy:group.
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	registry map[AnnotationArg]RegistryEntry

	addressSpaces map[AnnotationArg]string

	// declarations holds the group annotations of the most recent Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL kernel source.
type PreProcessor interface {
	// Process replaces @oxy:include annotations with snippet source and @oxy:group
	// annotations with generated @group/@binding declarations. Each snippet is injected
	// at most once per source; repeated includes of the same key are dropped.
	//
	// Parameters:
	//   - source: the raw WGSL kernel source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error if an annotation is malformed or references an unknown snippet
	Process(source string) (string, error)

	// Declarations returns the group annotations collected by the most recent Process call.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given snippet registry.
// A nil registry is treated as empty.
//
// Parameters:
//   - registry: snippet keys mapped to their WGSL source and declared type
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(registry map[AnnotationArg]RegistryEntry) PreProcessor {
	if registry == nil {
		registry = make(map[AnnotationArg]RegistryEntry)
	}
	return &preProcessor{
		registry: registry,
		addressSpaces: map[AnnotationArg]string{
			AnnotationArgUniform:          "var<uniform>",
			AnnotationArgStorageRead:      "var<storage, read>",
			AnnotationArgStorageReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			entry, ok := p.registry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include snippet %q", a.Line, a.Args[0])
			}
			if included[a.Args[0]] {
				continue
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			wgslType, err := p.resolveType(a.Args[2])
			if err != nil {
				return "", fmt.Errorf("line %d: %w", a.Line, err)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaces[a.Args[0]], a.Args[1], wgslType))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// resolveType maps a snippet key, optionally wrapped in array<>, to its WGSL type name.
func (p *preProcessor) resolveType(arg AnnotationArg) (string, error) {
	key := string(arg)
	inner, isArray := strings.CutPrefix(key, "array<")
	if isArray {
		key = strings.TrimSuffix(inner, ">")
	}
	entry, ok := p.registry[AnnotationArg(key)]
	if !ok || entry.Type == "" {
		return "", fmt.Errorf("unknown @oxy:group type %q", arg)
	}
	if isArray {
		return fmt.Sprintf("array<%s>", entry.Type), nil
	}
	return entry.Type, nil
}
