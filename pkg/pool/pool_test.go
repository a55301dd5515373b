package pool

import (
	"errors"
	"sync"
	"testing"

	"github.com/menta2k/color-analyzer/pkg/gpu"
)

func TestHitRateApproachesOne(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	buffers := NewBufferPool(device, 4)

	const cycles = 200
	for i := 0; i < cycles; i++ {
		b, err := buffers.Get(4096, gpu.StorageShared)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		buffers.Recycle(b)
	}

	stats := buffers.Stats()
	if stats.Created != 1 {
		t.Errorf("Expected 1 allocation, got %d", stats.Created)
	}
	if stats.Reused != cycles-1 {
		t.Errorf("Expected %d reuses, got %d", cycles-1, stats.Reused)
	}
	if stats.HitRate < 0.99 {
		t.Errorf("Expected hit rate near 1, got %.3f", stats.HitRate)
	}
}

func TestFreeListBounded(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	buffers := NewBufferPool(device, 3)

	var held []*gpu.Buffer
	for i := 0; i < 10; i++ {
		b, err := buffers.Get(256, gpu.StorageShared)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		held = append(held, b)
	}
	for _, b := range held {
		buffers.Recycle(b)
	}

	key := BufferKey{Length: 256, Options: gpu.StorageShared}
	if n := buffers.FreeCount(key); n != 3 {
		t.Errorf("Expected 3 free entries, got %d", n)
	}
	if stats := buffers.Stats(); stats.Dropped != 7 {
		t.Errorf("Expected 7 dropped, got %d", stats.Dropped)
	}
	// dropped buffers are released back to the device
	if got := device.Allocated(); got != 3*256 {
		t.Errorf("Expected %d bytes held, got %d", 3*256, got)
	}
}

func TestKeysAreSeparate(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	textures := NewTexturePool(device, 2)

	small := gpu.TextureDescriptor{Width: 4, Height: 4, Format: gpu.FormatBGRA8, Usage: gpu.UsageShaderRead}
	large := gpu.TextureDescriptor{Width: 8, Height: 8, Format: gpu.FormatBGRA8, Usage: gpu.UsageShaderRead}

	a, err := textures.Get(small)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	textures.Recycle(a)

	b, err := textures.Get(large)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if b == a {
		t.Fatal("Texture of a different size must not be reused")
	}
	if b.Width() != 8 {
		t.Errorf("Expected width 8, got %d", b.Width())
	}

	c, err := textures.Get(small)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c != a {
		t.Error("Expected the recycled small texture to be reused")
	}
}

func TestBufferLengthMustMatch(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	buffers := NewBufferPool(device, 2)

	large, err := buffers.Get(1024, gpu.StorageShared)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	buffers.Recycle(large)

	// a free larger buffer does not satisfy a smaller request
	small, err := buffers.Get(512, gpu.StorageShared)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if small == large || small.Length() != 512 {
		t.Errorf("Expected a fresh 512-byte buffer, got %d bytes", small.Length())
	}
	if stats := buffers.Stats(); stats.Created != 2 || stats.Reused != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestClearReleasesFreeEntries(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	set := NewSet(device, DefaultConfig())

	b, _ := set.Buffers.Get(1024, gpu.StorageShared)
	tex, _ := set.Textures.Get(gpu.TextureDescriptor{Width: 16, Height: 16, Format: gpu.FormatBGRA8})
	pb, _ := set.PixelBuffers.Get(16, 16, gpu.FormatBGRA8)
	set.Buffers.Recycle(b)
	set.Textures.Recycle(tex)
	set.PixelBuffers.Recycle(pb)

	if device.Allocated() == 0 {
		t.Fatal("Expected recycled resources to stay allocated")
	}

	set.Clear()

	if got := device.Allocated(); got != 0 {
		t.Errorf("Expected all memory released after Clear, got %d bytes", got)
	}
	for name, s := range set.Stats() {
		if s.Free != 0 {
			t.Errorf("%s: expected empty free list, got %d", name, s.Free)
		}
	}
}

func TestAllocationFailure(t *testing.T) {
	device := gpu.NewSoftwareDevice(512)
	buffers := NewBufferPool(device, 2)

	_, err := buffers.Get(1024, gpu.StorageShared)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("Expected ErrAllocation, got %v", err)
	}
	if !errors.Is(err, gpu.ErrOutOfMemory) {
		t.Errorf("Expected device error to be wrapped, got %v", err)
	}
	if stats := buffers.Stats(); stats.Created != 0 {
		t.Errorf("Failed allocation must not be counted, got %d", stats.Created)
	}
}

func TestConcurrentCheckout(t *testing.T) {
	device := gpu.NewSoftwareDevice(0)
	buffers := NewBufferPool(device, 8)

	const workers = 8
	const iterations = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				b, err := buffers.Get(512, gpu.StorageShared)
				if err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
				b.Contents()[0] = byte(i)
				buffers.Recycle(b)
			}
		}()
	}
	wg.Wait()

	stats := buffers.Stats()
	if stats.Created+stats.Reused != workers*iterations {
		t.Errorf("Expected %d checkouts, got %d", workers*iterations, stats.Created+stats.Reused)
	}
	if stats.Created > workers {
		t.Errorf("Expected at most %d allocations, got %d", workers, stats.Created)
	}
	if stats.Free > 8 {
		t.Errorf("Free list exceeded capacity: %d", stats.Free)
	}
}

func BenchmarkCheckoutRecycle(b *testing.B) {
	device := gpu.NewSoftwareDevice(0)
	buffers := NewBufferPool(device, 4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := buffers.Get(1<<20, gpu.StorageShared)
		if err != nil {
			b.Fatal(err)
		}
		buffers.Recycle(buf)
	}
}
