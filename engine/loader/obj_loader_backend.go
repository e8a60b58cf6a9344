package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-trace/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// objLoaderBackend reads Wavefront OBJ geometry: positions, normals, texture coordinates
// and polygon faces. Materials, groups and curves are ignored.
type objLoaderBackend struct{}

var _ loaderBackend = &objLoaderBackend{}

func newOBJLoaderBackend() *objLoaderBackend {
	return &objLoaderBackend{}
}

func (b *objLoaderBackend) Load(path string) (*importedMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.LoadReader(name, f)
}

// objCorner is one v/vt/vn reference of a face, as zero-based indices. -1 marks absent.
type objCorner struct {
	v, vt, vn int
}

type objParser struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	texCoords []mgl32.Vec2

	out   importedMesh
	index map[objCorner]uint32
}

func (b *objLoaderBackend) LoadReader(name string, r io.Reader) (*importedMesh, error) {
	p := &objParser{index: make(map[objCorner]uint32)}
	p.out.Name = name

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		var err error
		switch fields[0] {
		case "v":
			var v []float32
			if v, err = parseFloats(fields[1:], 3); err == nil {
				p.positions = append(p.positions, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vn":
			var v []float32
			if v, err = parseFloats(fields[1:], 3); err == nil {
				p.normals = append(p.normals, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			var v []float32
			if v, err = parseFloats(fields[1:], 2); err == nil {
				p.texCoords = append(p.texCoords, mgl32.Vec2{v[0], v[1]})
			}
		case "f":
			err = p.face(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("obj line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &p.out, nil
}

// face fan-triangulates a polygon around its first corner.
func (p *objParser) face(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face has %d corners, need at least 3", len(refs))
	}
	corners := make([]objCorner, len(refs))
	for i, ref := range refs {
		c, err := p.corner(ref)
		if err != nil {
			return err
		}
		corners[i] = c
	}
	faceNormal := p.positionOf(corners[1]).Sub(p.positionOf(corners[0])).
		Cross(p.positionOf(corners[2]).Sub(p.positionOf(corners[0])))
	if faceNormal.Len() > 0 {
		faceNormal = faceNormal.Normalize()
	}
	for i := 1; i+1 < len(corners); i++ {
		for _, c := range []objCorner{corners[0], corners[i], corners[i+1]} {
			p.out.Indices = append(p.out.Indices, p.vertex(c, faceNormal))
		}
	}
	return nil
}

// corner parses v, v/vt, v//vn or v/vt/vn. Negative indices count back from the end.
func (p *objParser) corner(ref string) (objCorner, error) {
	parts := strings.Split(ref, "/")
	c := objCorner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], len(p.positions)); err != nil || c.v < 0 {
		return c, fmt.Errorf("bad position reference %q", ref)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], len(p.texCoords)); err != nil {
			return c, fmt.Errorf("bad texture reference %q", ref)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return c, fmt.Errorf("bad normal reference %q", ref)
		}
	}
	return c, nil
}

func (p *objParser) positionOf(c objCorner) mgl32.Vec3 {
	return p.positions[c.v]
}

// vertex returns the index of the vertex for c, adding it on first use.
// Corners without a normal take the face normal and are never shared.
func (p *objParser) vertex(c objCorner, faceNormal mgl32.Vec3) uint32 {
	if c.vn >= 0 {
		if idx, ok := p.index[c]; ok {
			return idx
		}
	}
	v := model.GPUVertex{Position: p.positions[c.v]}
	if c.vn >= 0 {
		v.Normal = p.normals[c.vn]
	} else {
		v.Normal = faceNormal
	}
	if c.vt >= 0 {
		v.TexCoord = p.texCoords[c.vt]
	}
	idx := uint32(len(p.out.Vertices))
	p.out.Vertices = append(p.out.Vertices, v)
	if c.vn >= 0 {
		p.index[c] = idx
	}
	return idx
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return -1, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return -1, fmt.Errorf("index %d out of range 1..%d", i, count)
	}
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("need %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
