package resource

import "testing"

func TestHostBufferReleaseOnce(t *testing.T) {
	calls := 0
	b := NewHostBuffer("uniform", 32, BufferUsageUniform|BufferUsageCopyDst, func() { calls++ })
	if got := len(b.Bytes()); got != 32 {
		t.Fatalf("len(Bytes()) = %d, want 32", got)
	}
	b.Release()
	b.Release()
	if calls != 1 {
		t.Errorf("onRelease called %d times, want 1", calls)
	}
	if !b.Released() {
		t.Error("Released() = false after Release")
	}
	if b.Bytes() != nil {
		t.Error("Bytes() non-nil after Release")
	}
}

func TestHostTextureLoadStore(t *testing.T) {
	tex := NewHostTexture(TextureDescriptor{Label: "env", Width: 3, Height: 2, Layers: 2}, nil)
	tex.Store(2, 1, 1, [4]float32{1, 2, 3, 4})
	if got := tex.Load(2, 1, 1); got != [4]float32{1, 2, 3, 4} {
		t.Errorf("Load(2, 1, 1) = %v", got)
	}
	if got := tex.Load(9, 9, 1); got != [4]float32{1, 2, 3, 4} {
		t.Errorf("Load clamps to edge, got %v", got)
	}
	if got := tex.Load(2, 1, 0); got != [4]float32{} {
		t.Errorf("layer 0 modified: %v", got)
	}
	tex.Store(-1, 0, 0, [4]float32{5, 5, 5, 5})
	tex.Store(3, 0, 0, [4]float32{5, 5, 5, 5})
	for i, v := range tex.Pixels()[:3*2*4] {
		if v != 0 {
			t.Fatalf("out-of-range Store wrote pixel component %d", i)
		}
	}
}

func TestTextureLayersDefault(t *testing.T) {
	tex := NewHostTexture(TextureDescriptor{Width: 1, Height: 1}, nil)
	if tex.Layers() != 1 {
		t.Errorf("Layers() = %d, want 1", tex.Layers())
	}
}
