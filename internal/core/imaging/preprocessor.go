package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/aftr-app/aftr-backend/internal/core"
)

const (
	// maxEdge bounds the longest image dimension sent to the vision
	// model; anything larger is downscaled and re-encoded.
	maxEdge = 1024

	jpegQuality   = 85
	decodeWorkers = 4
)

// ItemResult is the per-payload outcome of a batch run. A payload is
// either Decoded (Part set) or Skipped (Err explains why).
type ItemResult struct {
	Index int
	Part  *core.ImagePart
	Err   error
}

func (r ItemResult) Decoded() bool { return r.Part != nil }

// PreprocessBatch decodes every payload into a normalized ImagePart.
// Undecodable payloads are skipped, never aborting the batch; results
// keep the input order. An empty input yields an empty result slice.
func PreprocessBatch(ctx context.Context, payloads [][]byte) []ItemResult {
	results := make([]ItemResult, len(payloads))
	if len(payloads) == 0 {
		return results
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(decodeWorkers)

	for i, raw := range payloads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = ItemResult{Index: i, Err: err}
				return nil
			}
			part, err := normalize(raw)
			results[i] = ItemResult{Index: i, Part: part, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; skips are per-item

	return results
}

// Parts extracts the successfully decoded payloads, preserving order.
func Parts(results []ItemResult) []core.ImagePart {
	out := make([]core.ImagePart, 0, len(results))
	for _, r := range results {
		if r.Decoded() {
			out = append(out, *r.Part)
		}
	}
	return out
}

// normalize verifies the payload decodes as an image, downscales it if
// oversized, and returns bytes plus a sniffed (never client-declared)
// MIME type.
func normalize(raw []byte) (*core.ImagePart, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		mt := mimetype.Detect(raw)
		return &core.ImagePart{Bytes: raw, MIMEType: mt.String()}, nil
	}

	scaled := downscale(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("re-encode %s image: %w", format, err)
	}
	return &core.ImagePart{Bytes: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

func downscale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
