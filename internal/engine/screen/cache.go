package screen

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder for image.Decode
	_ "image/jpeg" // Register JPEG decoder for image.Decode
	_ "image/png"  // Register PNG decoder for image.Decode
	"io/fs"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/bmp"  // Register BMP decoder for image.Decode
	_ "golang.org/x/image/webp" // Register WebP decoder for image.Decode

	"github.com/ConserveLee/gui-rpa/internal/constants"
	"github.com/ConserveLee/gui-rpa/internal/logger"
)

// Template is a decoded reference image plus its precomputed scaled variants.
type Template struct {
	Path     string
	Image    image.Image
	Gray     *Gray
	Variants []Variant // ascending scale, unit scale excluded
}

// Variant is the grayscale template resized by Scale.
type Variant struct {
	Scale float64
	Gray  *Gray
}

// TemplateCache owns the decoded templates of one run.
type TemplateCache struct {
	log      *logger.Logger
	scales   []float64
	entries  map[string]*Template
	failures map[string]error
}

// NewTemplateCache creates an empty cache. Variants are generated for the
// scales ScaleSteps(scaleMin, scaleMax) when scaled is true.
func NewTemplateCache(scaleMin, scaleMax float64, scaled bool, log *logger.Logger) *TemplateCache {
	c := &TemplateCache{
		log:      log,
		entries:  make(map[string]*Template),
		failures: make(map[string]error),
	}
	if scaled && (scaleMin != 1.0 || scaleMax != 1.0) {
		c.scales = ScaleSteps(scaleMin, scaleMax)
	}
	return c
}

// ScaleSteps returns evenly spaced scales from min to max inclusive, one per
// ScaleStep, without the steps that are within UnitScaleBand of 1.0.
func ScaleSteps(lo, hi float64) []float64 {
	// The epsilon keeps 0.4/0.05 from truncating to 7.
	steps := int(math.Floor((hi-lo)/constants.ScaleStep+1e-9)) + 1
	if steps < 1 {
		steps = 1
	}

	var out []float64
	for i := 0; i < steps; i++ {
		s := lo
		if steps > 1 {
			s = lo + (hi-lo)*float64(i)/float64(steps-1)
		}
		if math.Abs(s-1.0) < constants.UnitScaleBand {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Preload decodes every path once. Missing files are skipped; decode failures
// are logged and remembered so the path never matches.
func (c *TemplateCache) Preload(paths []string) {
	c.log.Info("Preloading %d template(s)...", len(paths))

	for _, p := range paths {
		if _, ok := c.entries[p]; ok {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			c.log.Debug("Template %s not found, skipping", p)
			continue
		}
		if _, err := c.load(p); err != nil {
			c.log.Error("Failed to load template %s: %v", p, err)
		}
	}

	var variants int
	var size uint64
	for _, t := range c.entries {
		size += t.Gray.Bytes()
		for _, v := range t.Variants {
			size += v.Gray.Bytes()
		}
		variants += len(t.Variants)
	}
	c.log.Info("Preload finished: %d template(s), %d scaled variant(s), %s", len(c.entries), variants, humanize.Bytes(size))
}

// Get returns the template for path, decoding it on first use.
func (c *TemplateCache) Get(path string) (*Template, bool) {
	if t, ok := c.entries[path]; ok {
		return t, true
	}
	if _, failed := c.failures[path]; failed {
		return nil, false
	}
	t, err := c.load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Debug("Lazy load of %s failed: %v", path, err)
		}
		return nil, false
	}
	return t, true
}

// Len returns the number of decoded templates.
func (c *TemplateCache) Len() int {
	return len(c.entries)
}

// Scales returns the scales variants are generated for.
func (c *TemplateCache) Scales() []float64 {
	return c.scales
}

// load decodes path and builds its variants. Decode errors are permanent for
// the run; a missing file is not, so the path may be retried later.
func (c *TemplateCache) load(path string) (*Template, error) {
	img, err := LoadImage(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.failures[path] = err
		}
		return nil, err
	}

	t := &Template{Path: path, Image: img, Gray: NewGray(img)}
	for _, s := range c.scales {
		w := int(float64(t.Gray.W) * s)
		h := int(float64(t.Gray.H) * s)
		if w < 1 || h < 1 {
			continue
		}
		t.Variants = append(t.Variants, Variant{Scale: s, Gray: t.Gray.Resize(w, h)})
	}
	c.entries[path] = t
	return t, nil
}

// LoadImage loads an image from the filesystem
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}
