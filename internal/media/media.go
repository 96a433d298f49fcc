package media

import (
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"os"

	"golang.org/x/image/draw"
)

// NetworkClass categorizes the current connectivity for the quality tradeoff.
type NetworkClass string

const (
	ClassWiFi     NetworkClass = "wifi"
	ClassCellular NetworkClass = "cellular"
	ClassUnknown  NetworkClass = "unknown"
)

// Classifier reports the current network class.
type Classifier interface {
	Class() NetworkClass
}

// StaticClassifier always reports the same class. Kiosk installs have a fixed
// uplink, so connectivity is configuration, not discovery.
type StaticClassifier struct {
	Current NetworkClass
}

// Class returns the configured class.
func (s StaticClassifier) Class() NetworkClass { return s.Current }

// Quality tiers: spend bandwidth on wifi, save it on metered links.
const (
	qualityWiFi    = 85
	qualityMetered = 60
)

// Preparer re-encodes captured photos before upload, bounding dimensions and
// picking a JPEG quality from the network class. Compression is best-effort:
// any failure falls back to the original file, never to an error.
type Preparer struct {
	classifier Classifier
	maxDim     int
	tmpDir     string
}

// NewPreparer builds a preparer. maxDim <= 0 means the 1280px default; an
// empty tmpDir uses the OS temp directory.
func NewPreparer(classifier Classifier, maxDim int, tmpDir string) *Preparer {
	if maxDim <= 0 {
		maxDim = 1280
	}
	if classifier == nil {
		classifier = StaticClassifier{Current: ClassUnknown}
	}
	return &Preparer{classifier: classifier, maxDim: maxDim, tmpDir: tmpDir}
}

// Prepare re-encodes the image at localURI and returns the path of the
// prepared copy. On any failure (missing file, corrupt image, encode error)
// it returns localURI unchanged.
func (p *Preparer) Prepare(localURI string) string {
	out, err := p.reencode(localURI)
	if err != nil {
		log.Printf("media prepare fell back to original %s: %v", localURI, err)
		return localURI
	}
	return out
}

// Quality returns the JPEG quality for the current network class.
func (p *Preparer) Quality() int {
	if p.classifier.Class() == ClassWiFi {
		return qualityWiFi
	}
	return qualityMetered
}

func (p *Preparer) reencode(localURI string) (string, error) {
	f, err := os.Open(localURI)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > p.maxDim || h > p.maxDim {
		scale := float64(p.maxDim) / float64(w)
		if h > w {
			scale = float64(p.maxDim) / float64(h)
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		src = dst
	}

	// Output is always JPEG, so the suffix must say so regardless of the
	// source extension; the mime type is inferred from it at attach time.
	out, err := os.CreateTemp(p.tmpDir, "sitesync-*.jpg")
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, src, &jpeg.Options{Quality: p.Quality()}); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
