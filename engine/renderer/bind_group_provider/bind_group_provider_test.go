package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-trace/engine/renderer/resource"
)

func TestBindingsSortedAndExclusive(t *testing.T) {
	buf := resource.NewHostBuffer("u", 16, resource.BufferUsageUniform, nil)
	tex := resource.NewHostTexture(resource.TextureDescriptor{Width: 1, Height: 1}, nil)
	p := NewBindGroupProvider("blur", WithTexture(2, tex), WithBuffer(0, buf))
	p.SetTexture(1, tex)

	got := p.Bindings()
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Bindings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Bindings() = %v, want %v", got, want)
		}
	}

	p.SetBuffer(1, buf)
	if p.Texture(1) != nil {
		t.Error("SetBuffer did not replace texture binding")
	}
	if p.Buffer(1) != buf {
		t.Error("Buffer(1) did not return the bound buffer")
	}
}

func TestSetBindingDropsBindGroup(t *testing.T) {
	released := 0
	p := NewBindGroupProvider("trace")
	p.SetBindGroup("bg", func() { released++ })
	if p.BindGroup() == nil {
		t.Fatal("BindGroup() = nil after SetBindGroup")
	}
	p.SetTexture(0, resource.NewHostTexture(resource.TextureDescriptor{Width: 1, Height: 1}, nil))
	if p.BindGroup() != nil {
		t.Error("BindGroup() survived a binding change")
	}
	p.Release()
	if released != 1 {
		t.Errorf("bind group released %d times, want 1", released)
	}
}
