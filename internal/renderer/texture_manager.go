package renderer

import (
	"fmt"
	"image"
	"sync"

	"Portal3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Texture is an uploaded 2D texture.
type Texture struct {
	ID     uint32
	Name   string
	Width  int
	Height int
	SRGB   bool
}

type TextureOptions struct {
	// SRGB stores the texels as sRGB so sampling returns linear values.
	SRGB bool
	// FlipY uploads the bottom row first.
	FlipY bool
}

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
}

// TextureManager caches uploaded textures by name and frees them by reference count.
type TextureManager struct {
	textures map[string]*Texture
	refCount map[uint32]int
	mu       sync.Mutex
	stats    TextureStats
}

func NewTextureManager() *TextureManager {
	return &TextureManager{
		textures: make(map[string]*Texture),
		refCount: make(map[uint32]int),
	}
}

// Upload returns the cached texture for name or creates it from img.
// Must run on the thread owning the GL context.
func (tm *TextureManager) Upload(name string, img image.Image, opts TextureOptions) (*Texture, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tex, ok := tm.textures[name]; ok {
		tm.refCount[tex.ID]++
		tm.stats.CacheHits++
		logger.Log.Debug("Texture cache hit",
			zap.String("name", name),
			zap.Uint32("textureID", tex.ID),
			zap.Int("refCount", tm.refCount[tex.ID]))
		return tex, nil
	}
	tm.stats.CacheMisses++

	if img == nil {
		return nil, fmt.Errorf("texture %q: nil image", name)
	}
	rgba := ToRGBA(img, opts.FlipY)
	size := rgba.Rect.Size()
	if size.X == 0 || size.Y == 0 {
		return nil, fmt.Errorf("texture %q: empty image", name)
	}

	internalFormat := int32(gl.RGBA8)
	if opts.SRGB {
		internalFormat = gl.SRGB8_ALPHA8
	}

	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(size.X), int32(size.Y), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex := &Texture{ID: textureID, Name: name, Width: size.X, Height: size.Y, SRGB: opts.SRGB}
	tm.textures[name] = tex
	tm.refCount[textureID] = 1
	tm.stats.TotalTextures++

	logger.Log.Info("Texture uploaded",
		zap.String("name", name),
		zap.Uint32("textureID", textureID),
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Bool("srgb", opts.SRGB))

	return tex, nil
}

// Release decrements the reference count and frees the texture at zero.
func (tm *TextureManager) Release(tex *Texture) {
	if tex == nil || tex.ID == 0 {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.refCount[tex.ID]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture", zap.Uint32("textureID", tex.ID))
		return
	}
	refCount--
	tm.refCount[tex.ID] = refCount
	if refCount > 0 {
		return
	}

	id := tex.ID
	gl.DeleteTextures(1, &id)
	delete(tm.textures, tex.Name)
	delete(tm.refCount, id)
	logger.Log.Debug("Texture freed", zap.Uint32("textureID", id), zap.String("name", tex.Name))
}

func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.refCount)
	return stats
}

// Clear deletes every texture still alive.
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for textureID := range tm.refCount {
		id := textureID
		gl.DeleteTextures(1, &id)
	}
	tm.textures = make(map[string]*Texture)
	tm.refCount = make(map[uint32]int)
}

// ToRGBA converts img to tightly packed RGBA with its origin at (0,0),
// optionally flipping rows so the bottom row comes first.
func ToRGBA(img image.Image, flipY bool) *image.RGBA {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	if !flipY {
		return rgba
	}

	flipped := image.NewRGBA(rgba.Rect)
	rowLen := rgba.Stride
	h := rgba.Rect.Dy()
	for y := 0; y < h; y++ {
		copy(flipped.Pix[y*rowLen:(y+1)*rowLen], rgba.Pix[(h-1-y)*rowLen:(h-y)*rowLen])
	}
	return flipped
}
