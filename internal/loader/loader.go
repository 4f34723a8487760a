package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"Portal3D/internal/config"
	"Portal3D/internal/logger"
	"Portal3D/internal/renderer"
	"Portal3D/internal/scene"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Loader reads the scene and its baked texture relative to the configured base path.
type Loader struct {
	assets          config.Assets
	decoders        map[string]GeometryDecoder
	defaultMaterial *renderer.Material
}

type Option func(*Loader)

// WithDecoder registers a decoder for primitives carrying the named extension.
func WithDecoder(extension string, dec GeometryDecoder) Option {
	return func(l *Loader) {
		l.decoders[extension] = dec
	}
}

func New(assets config.Assets, opts ...Option) *Loader {
	l := &Loader{
		assets:          assets,
		decoders:        make(map[string]GeometryDecoder),
		defaultMaterial: renderer.NewBasicMaterial("default", renderer.NewBasicShader(), mgl32.Vec3{1, 1, 1}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadImage decodes a JPEG or PNG file into packed RGBA, top row first.
func (l *Loader) LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", path, err)
	}
	rgba := renderer.ToRGBA(img, false)
	logger.Log.Info("Texture decoded",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("width", rgba.Rect.Dx()),
		zap.Int("height", rgba.Rect.Dy()))
	return rgba, nil
}

// Asset is everything the scene needs from disk.
type Asset struct {
	Scene        *scene.Node
	BakedTexture *image.RGBA
}

// Pending is the future of an asynchronous load.
type Pending struct {
	ctx     context.Context
	pool    pond.Pool
	scene   pond.Task
	texture pond.Task

	node *scene.Node
	img  *image.RGBA

	once  sync.Once
	asset *Asset
	err   error
}

// LoadAsync starts reading the scene and the texture concurrently and returns immediately.
func (l *Loader) LoadAsync(ctx context.Context) *Pending {
	p := &Pending{
		ctx:  ctx,
		pool: pond.NewPool(2, pond.WithContext(ctx)),
	}
	scenePath := l.assets.ScenePath()
	texturePath := l.assets.TexturePath()
	logger.Log.Info("Loading assets",
		zap.String("scene", scenePath),
		zap.String("texture", texturePath))

	p.scene = p.pool.SubmitErr(func() error {
		node, err := l.LoadScene(scenePath)
		p.node = node
		return err
	})
	p.texture = p.pool.SubmitErr(func() error {
		img, err := l.LoadImage(texturePath)
		p.img = img
		return err
	})
	return p
}

// Poll reports whether both loads finished without blocking.
// Once ready it keeps returning the same asset and error.
func (p *Pending) Poll() (*Asset, bool, error) {
	if !isDone(p.scene) || !isDone(p.texture) {
		if err := p.ctx.Err(); err != nil {
			return nil, true, p.finish(err)
		}
		return nil, false, nil
	}
	if err := p.finish(nil); err != nil {
		return nil, true, err
	}
	return p.asset, true, nil
}

// Wait blocks until both loads finish or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*Asset, error) {
	for _, task := range []pond.Task{p.scene, p.texture} {
		select {
		case <-task.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	asset, _, err := p.Poll()
	return asset, err
}

func (p *Pending) finish(cause error) error {
	p.once.Do(func() {
		defer p.pool.Stop()
		if cause != nil {
			p.err = fmt.Errorf("load assets: %w", cause)
			return
		}
		err := multierr.Combine(p.scene.Wait(), p.texture.Wait())
		if err != nil {
			p.err = fmt.Errorf("load assets: %w", err)
			return
		}
		if p.node == nil || p.img == nil {
			p.err = errors.New("load assets: incomplete result")
			return
		}
		p.asset = &Asset{Scene: p.node, BakedTexture: p.img}
	})
	return p.err
}

func isDone(t pond.Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}
