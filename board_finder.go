package shogicam

import (
	"cmp"
	"fmt"
	"image"
	"math"
	"slices"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"go.viam.com/rdk/logging"
)

const (
	// gridSamples is the number of probes along each of the 20 grid lines.
	gridSamples = 24
	// supportRadius is how far, in working pixels, a probe may sit from a strong edge.
	supportRadius = 2
	// linesPerGroup caps the horizontal and vertical lines combined into candidates.
	linesPerGroup = 14
	// minBoundaryPoints is the smallest mask outline worth fitting a quad to.
	minBoundaryPoints = 100
	// scoreTieEpsilon treats scores this close as equal; the larger outline then wins.
	scoreTieEpsilon = 1e-9
)

var unitSquare = Quad{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// DetectorConfig tunes the corner detector.
type DetectorConfig struct {
	// MaxDimension bounds the longest side of the working copy of the photograph.
	MaxDimension int `json:"max_dimension" yaml:"max_dimension" mapstructure:"max_dimension"`
	// MinAreaRatio is the smallest fraction of the frame a board may cover.
	MinAreaRatio float64 `json:"min_area_ratio" yaml:"min_area_ratio" mapstructure:"min_area_ratio"`
	// TargetCoverage is the frame fraction at which the area term saturates.
	TargetCoverage float64 `json:"target_coverage" yaml:"target_coverage" mapstructure:"target_coverage"`
	// MinGridSupport is the share of grid probes that must land on edges.
	MinGridSupport float64 `json:"min_grid_support" yaml:"min_grid_support" mapstructure:"min_grid_support"`
	// EdgeThreshold is the Sobel magnitude (0-255) of a strong edge.
	EdgeThreshold int `json:"edge_threshold" yaml:"edge_threshold" mapstructure:"edge_threshold"`
}

// DefaultDetectorConfig returns the settings used when a config leaves them unset.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MaxDimension:   800,
		MinAreaRatio:   0.05,
		TargetCoverage: 0.25,
		MinGridSupport: 0.35,
		EdgeThreshold:  60,
	}
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	def := DefaultDetectorConfig()
	if c.MaxDimension == 0 {
		c.MaxDimension = def.MaxDimension
	}
	if c.MinAreaRatio == 0 {
		c.MinAreaRatio = def.MinAreaRatio
	}
	if c.TargetCoverage == 0 {
		c.TargetCoverage = def.TargetCoverage
	}
	if c.MinGridSupport == 0 {
		c.MinGridSupport = def.MinGridSupport
	}
	if c.EdgeThreshold == 0 {
		c.EdgeThreshold = def.EdgeThreshold
	}
	return c
}

// Detection is a located board outline and how much the detector trusts it.
type Detection struct {
	Corners Quad
	// Score is in [0, 1]; callers pick their own acceptance threshold.
	Score float64

	GridSupport float64 // share of grid probes on strong edges
	Coverage    float64 // board area over frame area
	Squareness  float64 // 1 for a square outline, 0 at 1:2 or worse
}

// CornerDetector finds the outer corners of the playing grid in a photograph.
type CornerDetector struct {
	cfg    DetectorConfig
	logger logging.Logger
}

// NewCornerDetector validates cfg (zero fields take defaults).
func NewCornerDetector(cfg DetectorConfig, logger logging.Logger) (*CornerDetector, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxDimension < 64 {
		return nil, fmt.Errorf("max_dimension %d too small", cfg.MaxDimension)
	}
	if cfg.MinAreaRatio < 0 || cfg.MinAreaRatio >= 1 {
		return nil, fmt.Errorf("min_area_ratio %v outside [0, 1)", cfg.MinAreaRatio)
	}
	if cfg.TargetCoverage <= 0 || cfg.TargetCoverage > 1 {
		return nil, fmt.Errorf("target_coverage %v outside (0, 1]", cfg.TargetCoverage)
	}
	if cfg.MinGridSupport < 0 || cfg.MinGridSupport > 1 {
		return nil, fmt.Errorf("min_grid_support %v outside [0, 1]", cfg.MinGridSupport)
	}
	if cfg.EdgeThreshold < 1 || cfg.EdgeThreshold > 255 {
		return nil, fmt.Errorf("edge_threshold %d outside [1, 255]", cfg.EdgeThreshold)
	}
	if logger == nil {
		logger = logging.NewLogger("shogicam.detector")
	}
	return &CornerDetector{cfg: cfg, logger: logger}, nil
}

// FindBoard runs a detector with default settings.
func FindBoard(img image.Image) (Detection, error) {
	d, err := NewCornerDetector(DefaultDetectorConfig(), nil)
	if err != nil {
		return Detection{}, err
	}
	return d.Detect(img)
}

// Detect locates the board. When no outline has enough grid support it returns an error
// wrapping ErrNoBoard rather than a guess.
func (d *CornerDetector) Detect(img image.Image) (Detection, error) {
	w := d.prepare(img)
	candidates := d.candidates(w)

	var best Detection
	found := false
	for _, q := range candidates {
		det, err := d.evaluate(w, q)
		if err != nil || det.GridSupport < d.cfg.MinGridSupport {
			continue
		}
		switch {
		case !found, det.Score > best.Score+scoreTieEpsilon:
		case math.Abs(det.Score-best.Score) <= scoreTieEpsilon && det.Corners.Area() > best.Corners.Area():
		default:
			continue
		}
		best = det
		found = true
	}

	if !found {
		return Detection{}, fmt.Errorf("%w: %d candidate outlines, none with grid support", ErrNoBoard, len(candidates))
	}

	best.Corners = w.toOriginal(best.Corners)
	d.logger.Debugw("board detected",
		"candidates", len(candidates),
		"score", best.Score,
		"grid", best.GridSupport,
		"coverage", best.Coverage,
		"squareness", best.Squareness)
	return best, nil
}

// Score rates a caller-supplied outline (in img coordinates) the way Detect rates its own.
func (d *CornerDetector) Score(img image.Image, corners Quad) (Detection, error) {
	if err := corners.Validate(); err != nil {
		return Detection{}, err
	}
	w := d.prepare(img)
	det, err := d.evaluate(w, w.toWork(corners))
	if err != nil {
		return Detection{}, err
	}
	det.Corners = corners
	return det, nil
}

func (d *CornerDetector) evaluate(w *workImage, q Quad) (Detection, error) {
	if err := q.Validate(); err != nil {
		return Detection{}, err
	}
	h, err := NewHomography(unitSquare, q)
	if err != nil {
		return Detection{}, err
	}

	grid := gridSupport(w, h)
	coverage := q.Area() / float64(w.width*w.height)
	area := math.Min(1, coverage/d.cfg.TargetCoverage)

	// the nearer of two opposite sides is foreshortened less, so compare the longer ones
	top, right, bottom, left := q.sideLengths()
	horiz, vert := math.Max(top, bottom), math.Max(left, right)
	aspect := math.Min(horiz, vert) / math.Max(horiz, vert)
	square := clamp01((aspect - 0.5) / 0.5)

	return Detection{
		Corners:     q,
		Score:       0.6*grid + 0.2*area + 0.2*square,
		GridSupport: grid,
		Coverage:    coverage,
		Squareness:  square,
	}, nil
}

// gridSupport projects the ten vertical and ten horizontal grid lines of a 9×9 board
// through h and returns the share of probes landing on a strong edge.
func gridSupport(w *workImage, h *Homography) float64 {
	hits, total := 0, 0
	for i := 0; i <= 9; i++ {
		u := float64(i) / 9
		for s := range gridSamples {
			v := 0.04 + 0.92*(float64(s)+0.5)/gridSamples
			if w.strongAt(h.Apply(r2.Point{X: u, Y: v})) {
				hits++
			}
			if w.strongAt(h.Apply(r2.Point{X: v, Y: u})) {
				hits++
			}
			total += 2
		}
	}
	return float64(hits) / float64(total)
}

// candidates gathers every outline worth scoring.
func (d *CornerDetector) candidates(w *workImage) []Quad {
	minSide := float64(min(w.width, w.height)) / 8
	minArea := d.cfg.MinAreaRatio * float64(w.width*w.height)
	frame := image.Rect(0, 0, w.width, w.height)
	margin := 0.05 * float64(max(w.width, w.height))

	plausible := func(q Quad) bool {
		if !q.within(frame, margin) || q.Area() < minArea {
			return false
		}
		top, right, bottom, left := q.sideLengths()
		return min(top, right, bottom, left) >= minSide
	}

	lines := houghLineDetection(w.edges, w.width, w.height, d.cfg.EdgeThreshold, min(w.width, w.height)/6)
	horizontal, vertical := splitLines(lines, w.width, w.height)

	var out []Quad
	if q, ok := d.maskCandidate(w); ok {
		if plausible(q) {
			out = append(out, q)
		}
		if snapped, ok := snapToLines(q, horizontal, vertical); ok && plausible(snapped) {
			out = append(out, snapped)
		}
	}

	for i := 0; i < len(horizontal); i++ {
		for j := i + 1; j < len(horizontal); j++ {
			top, bottom := horizontal[i], horizontal[j]
			if bottom.pos-top.pos < minSide {
				continue
			}
			for k := 0; k < len(vertical); k++ {
				for l := k + 1; l < len(vertical); l++ {
					left, right := vertical[k], vertical[l]
					if right.pos-left.pos < minSide {
						continue
					}
					q, ok := quadFromLines(top.Line, right.Line, bottom.Line, left.Line)
					if ok && plausible(q) {
						out = append(out, q)
					}
				}
			}
		}
	}
	return out
}

// maskCandidate fits a quad to the largest wood-coloured region.
func (d *CornerDetector) maskCandidate(w *workImage) (Quad, bool) {
	mask := createBoardMaskColor(w.img, w.width, w.height)
	boundary := findBoundary(mask)
	if len(boundary) < minBoundaryPoints {
		return Quad{}, false
	}
	return hullCorners(convexHull(boundary))
}

// workImage is the downscaled photograph with the derived maps the detector reads.
type workImage struct {
	img           *image.RGBA
	edges         [][]int
	strong        [][]bool
	width, height int

	origin image.Point // bounds origin of the original photograph
	sx, sy float64     // working size over original size
}

func (d *CornerDetector) prepare(img image.Image) *workImage {
	b := img.Bounds()
	w := &workImage{origin: b.Min, sx: 1, sy: 1}

	longest := max(b.Dx(), b.Dy())
	if longest > d.cfg.MaxDimension {
		f := float64(d.cfg.MaxDimension) / float64(longest)
		ww := max(1, int(math.Round(float64(b.Dx())*f)))
		wh := max(1, int(math.Round(float64(b.Dy())*f)))
		dst := image.NewRGBA(image.Rect(0, 0, ww, wh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		w.img = dst
		w.sx = float64(ww) / float64(b.Dx())
		w.sy = float64(wh) / float64(b.Dy())
	} else {
		w.img = toRGBA(img)
	}
	w.width, w.height = w.img.Rect.Dx(), w.img.Rect.Dy()

	gray := makeGrayImage(w.img)
	w.edges = sobelEdgeDetection(gray, w.width, w.height)

	strong := make([][]bool, w.height)
	for y := range w.height {
		strong[y] = make([]bool, w.width)
		for x := range w.width {
			strong[y][x] = w.edges[y][x] >= d.cfg.EdgeThreshold
		}
	}
	w.strong = dilateMask(strong, w.width, w.height, supportRadius)
	return w
}

func (w *workImage) strongAt(p r2.Point) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
	if x < 0 || y < 0 || x >= w.width || y >= w.height {
		return false
	}
	return w.strong[y][x]
}

func (w *workImage) toOriginal(q Quad) Quad {
	var out Quad
	for i, p := range q {
		out[i] = r2.Point{X: p.X/w.sx + float64(w.origin.X), Y: p.Y/w.sy + float64(w.origin.Y)}
	}
	return out
}

func (w *workImage) toWork(q Quad) Quad {
	var out Quad
	for i, p := range q {
		out[i] = r2.Point{X: (p.X - float64(w.origin.X)) * w.sx, Y: (p.Y - float64(w.origin.Y)) * w.sy}
	}
	return out
}

// createBoardMaskColor marks wood-coloured pixels: yellow to orange hue, moderate
// saturation, not dark. Grid lines and pieces are bridged by a closing, specks
// removed by an opening, and only the largest region is kept.
func createBoardMaskColor(img *image.RGBA, width, height int) [][]bool {
	mask := make([][]bool, height)
	for y := range height {
		mask[y] = make([]bool, width)
		for x := range width {
			i := img.PixOffset(x, y)
			c := colorful.Color{
				R: float64(img.Pix[i]) / 255,
				G: float64(img.Pix[i+1]) / 255,
				B: float64(img.Pix[i+2]) / 255,
			}
			h, s, v := c.Hsv()
			mask[y][x] = h >= 15 && h <= 65 && s >= 0.2 && s <= 0.85 && v >= 0.3
		}
	}

	mask = dilateMask(mask, width, height, 2)
	mask = erodeMask(mask, width, height, 2)
	mask = erodeMask(mask, width, height, 2)
	mask = dilateMask(mask, width, height, 2)

	return keepLargestComponent(mask, width, height)
}

// hullCorners picks the hull point furthest along each diagonal as TL, TR, BR, BL.
// Hull points are pixel centres' integer coordinates, so the right and bottom
// corners move out by one to the pixel's outer edge.
func hullCorners(hull []image.Point) (Quad, bool) {
	if len(hull) < 4 {
		return Quad{}, false
	}

	diagonals := [4]image.Point{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	var q Quad
	for i, d := range diagonals {
		best := hull[0]
		for _, p := range hull[1:] {
			if p.X*d.X+p.Y*d.Y > best.X*d.X+best.Y*d.Y {
				best = p
			}
		}
		q[i] = r2.Point{X: float64(best.X), Y: float64(best.Y)}
		if d.X > 0 {
			q[i].X++
		}
		if d.Y > 0 {
			q[i].Y++
		}
	}
	return q, q.Validate() == nil
}

// convexHull is Andrew's monotone chain: the lower chain left to right, then the
// upper chain back, dropping collinear points.
func convexHull(points []image.Point) []image.Point {
	if len(points) < 3 {
		return points
	}

	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b image.Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})

	turn := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for pass := range 2 {
		start := len(hull)
		for i := range sorted {
			p := sorted[i]
			if pass == 1 {
				p = sorted[len(sorted)-1-i]
			}
			for len(hull) >= start+2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, p)
		}
		// each chain ends where the other starts
		hull = hull[:len(hull)-1]
	}
	return hull
}

// makeGrayImage averages the three channels.
func makeGrayImage(img *image.RGBA) [][]int {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	gray := make([][]int, height)
	for y := range height {
		gray[y] = make([]int, width)
		for x := range width {
			i := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
			gray[y][x] = (int(img.Pix[i]) + int(img.Pix[i+1]) + int(img.Pix[i+2])) / 3
		}
	}
	return gray
}

// keepLargestComponent removes all but the largest connected component
func keepLargestComponent(mask [][]bool, width, height int) [][]bool {
	labels := make([][]int, height)
	for y := range height {
		labels[y] = make([]int, width)
	}

	componentSizes := make(map[int]int)
	currentLabel := 0

	for y := range height {
		for x := range width {
			if mask[y][x] && labels[y][x] == 0 {
				currentLabel++
				componentSizes[currentLabel] = floodFill(mask, labels, x, y, width, height, currentLabel)
			}
		}
	}

	largestLabel := 0
	largestSize := 0
	for label, size := range componentSizes {
		if size > largestSize || (size == largestSize && label < largestLabel) {
			largestSize = size
			largestLabel = label
		}
	}

	result := make([][]bool, height)
	for y := range height {
		result[y] = make([]bool, width)
		for x := range width {
			result[y][x] = largestLabel != 0 && labels[y][x] == largestLabel
		}
	}

	return result
}

func floodFill(mask [][]bool, labels [][]int, startX, startY, width, height, label int) int {
	stack := []image.Point{{startX, startY}}
	size := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if !mask[p.Y][p.X] || labels[p.Y][p.X] != 0 {
			continue
		}

		labels[p.Y][p.X] = label
		size++

		stack = append(stack,
			image.Point{p.X + 1, p.Y},
			image.Point{p.X - 1, p.Y},
			image.Point{p.X, p.Y + 1},
			image.Point{p.X, p.Y - 1},
		)
	}

	return size
}

// erodeMask keeps pixels whose whole (2r+1)² neighbourhood is set; outside the frame counts as unset.
func erodeMask(mask [][]bool, width, height, radius int) [][]bool {
	result := make([][]bool, height)
	for y := range height {
		result[y] = make([]bool, width)
		for x := range width {
			allSet := true
			for dy := -radius; dy <= radius && allSet; dy++ {
				for dx := -radius; dx <= radius && allSet; dx++ {
					ny, nx := y+dy, x+dx
					if ny < 0 || ny >= height || nx < 0 || nx >= width || !mask[ny][nx] {
						allSet = false
					}
				}
			}
			result[y][x] = allSet
		}
	}
	return result
}

// dilateMask sets pixels with any set pixel in their (2r+1)² neighbourhood.
func dilateMask(mask [][]bool, width, height, radius int) [][]bool {
	result := make([][]bool, height)
	for y := range height {
		result[y] = make([]bool, width)
		for x := range width {
			anySet := false
			for dy := -radius; dy <= radius && !anySet; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -radius; dx <= radius && !anySet; dx++ {
					nx := x + dx
					if nx >= 0 && nx < width && mask[ny][nx] {
						anySet = true
					}
				}
			}
			result[y][x] = anySet
		}
	}
	return result
}

func findBoundary(mask [][]bool) []image.Point {
	height := len(mask)
	if height == 0 {
		return nil
	}
	width := len(mask[0])

	var boundary []image.Point

	for y := range height {
		for x := range width {
			if !mask[y][x] {
				continue
			}
			if y == 0 || x == 0 || y == height-1 || x == width-1 ||
				!mask[y-1][x] || !mask[y+1][x] || !mask[y][x-1] || !mask[y][x+1] {
				boundary = append(boundary, image.Point{x, y})
			}
		}
	}

	return boundary
}

// Line represents a line in the form: rho = x*cos(theta) + y*sin(theta)
type Line struct {
	rho   float64
	theta float64
	votes int
}

// sobelEdgeDetection computes edge magnitude using Sobel operator
func sobelEdgeDetection(gray [][]int, width, height int) [][]int {
	edges := make([][]int, height)
	for y := range height {
		edges[y] = make([]int, width)
	}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := -gray[y-1][x-1] + gray[y-1][x+1] +
				-2*gray[y][x-1] + 2*gray[y][x+1] +
				-gray[y+1][x-1] + gray[y+1][x+1]

			gy := -gray[y-1][x-1] - 2*gray[y-1][x] - gray[y-1][x+1] +
				gray[y+1][x-1] + 2*gray[y+1][x] + gray[y+1][x+1]

			edges[y][x] = min(255, int(math.Sqrt(float64(gx*gx+gy*gy))))
		}
	}

	return edges
}

// houghLineDetection detects lines using Hough transform, strongest first.
func houghLineDetection(edges [][]int, width, height int, edgeThreshold, voteThreshold int) []Line {
	maxRho := int(math.Sqrt(float64(width*width + height*height)))
	numThetas := 180

	// rho ranges from -maxRho to +maxRho
	accumulator := make([][]int, 2*maxRho+1)
	for i := range accumulator {
		accumulator[i] = make([]int, numThetas)
	}

	cosTheta := make([]float64, numThetas)
	sinTheta := make([]float64, numThetas)
	for t := range numThetas {
		theta := float64(t) * math.Pi / float64(numThetas)
		cosTheta[t] = math.Cos(theta)
		sinTheta[t] = math.Sin(theta)
	}

	for y := range height {
		for x := range width {
			if edges[y][x] < edgeThreshold {
				continue
			}
			for t := range numThetas {
				rhoIdx := int(math.Round(float64(x)*cosTheta[t]+float64(y)*sinTheta[t])) + maxRho
				if rhoIdx >= 0 && rhoIdx < 2*maxRho+1 {
					accumulator[rhoIdx][t]++
				}
			}
		}
	}

	var lines []Line
	for rhoIdx := 0; rhoIdx < 2*maxRho+1; rhoIdx++ {
		for t := range numThetas {
			votes := accumulator[rhoIdx][t]
			if votes < voteThreshold {
				continue
			}

			// local maximum over a 5x5 neighbourhood; plateaus keep the cell with the
			// lowest accumulator index, compared after the theta wrap
			self := rhoIdx*numThetas + t
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nRho := rhoIdx + dr
					nT := t + dt
					if nT < 0 || nT >= numThetas {
						// theta wraps onto the mirrored rho
						nT = (nT + numThetas) % numThetas
						nRho = 2*maxRho - nRho
					}
					if nRho < 0 || nRho >= 2*maxRho+1 {
						continue
					}
					n := accumulator[nRho][nT]
					if n > votes || (n == votes && nRho*numThetas+nT < self) {
						isMax = false
					}
				}
			}

			if isMax {
				lines = append(lines, Line{
					rho:   float64(rhoIdx - maxRho),
					theta: float64(t) * math.Pi / float64(numThetas),
					votes: votes,
				})
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].votes > lines[j].votes
	})

	return lines
}

// placedLine is a line with its position across the image: y at the horizontal
// centre for horizontal lines, x at the vertical centre for vertical ones.
type placedLine struct {
	Line
	pos float64
}

// splitLines separates near-horizontal from near-vertical lines, merges near duplicates
// and keeps the strongest of each group, ordered by position.
func splitLines(lines []Line, width, height int) (horizontal, vertical []placedLine) {
	cx, cy := float64(width)/2, float64(height)/2

	keep := func(group []placedLine, l placedLine) []placedLine {
		if len(group) >= linesPerGroup {
			return group
		}
		for _, g := range group {
			dTheta := math.Abs(g.theta - l.theta)
			dTheta = math.Min(dTheta, math.Pi-dTheta)
			if math.Abs(g.pos-l.pos) < 6 && dTheta < 3*math.Pi/180 {
				return group
			}
		}
		return append(group, l)
	}

	for _, l := range lines {
		s, c := math.Sin(l.theta), math.Cos(l.theta)
		if l.theta > math.Pi/4 && l.theta < 3*math.Pi/4 {
			horizontal = keep(horizontal, placedLine{Line: l, pos: (l.rho - cx*c) / s})
		} else {
			vertical = keep(vertical, placedLine{Line: l, pos: (l.rho - cy*s) / c})
		}
	}

	sort.Slice(horizontal, func(i, j int) bool { return horizontal[i].pos < horizontal[j].pos })
	sort.Slice(vertical, func(i, j int) bool { return vertical[i].pos < vertical[j].pos })
	return horizontal, vertical
}

// lineIntersection finds the intersection point of two lines
func lineIntersection(l1, l2 Line) (r2.Point, bool) {
	c1, s1 := math.Cos(l1.theta), math.Sin(l1.theta)
	c2, s2 := math.Cos(l2.theta), math.Sin(l2.theta)

	det := c1*s2 - c2*s1
	if math.Abs(det) < 1e-10 {
		return r2.Point{}, false // parallel
	}

	return r2.Point{
		X: (s2*l1.rho - s1*l2.rho) / det,
		Y: (c1*l2.rho - c2*l1.rho) / det,
	}, true
}

func quadFromLines(top, right, bottom, left Line) (Quad, bool) {
	var q Quad
	pairs := [4][2]Line{{top, left}, {top, right}, {bottom, right}, {bottom, left}}
	for i, p := range pairs {
		pt, ok := lineIntersection(p[0], p[1])
		if !ok {
			return Quad{}, false
		}
		q[i] = pt
	}
	return q, true
}

// distanceToLine computes perpendicular distance from point to line
func distanceToLine(l Line, pt r2.Point) float64 {
	return math.Abs(pt.X*math.Cos(l.theta) + pt.Y*math.Sin(l.theta) - l.rho)
}

// findLineNearCorners returns the line passing closest, on average, to both corners.
func findLineNearCorners(lines []placedLine, a, b r2.Point) (Line, float64) {
	best := Line{}
	bestDist := math.MaxFloat64
	for _, l := range lines {
		dist := (distanceToLine(l.Line, a) + distanceToLine(l.Line, b)) / 2
		if dist < bestDist {
			bestDist = dist
			best = l.Line
		}
	}
	return best, bestDist
}

// snapToLines replaces each side of q by the detected line running along it, when
// every side has one within a few pixels.
func snapToLines(q Quad, horizontal, vertical []placedLine) (Quad, bool) {
	const maxDist = 8.0
	if len(horizontal) < 2 || len(vertical) < 2 {
		return Quad{}, false
	}

	top, dTop := findLineNearCorners(horizontal, q[0], q[1])
	bottom, dBottom := findLineNearCorners(horizontal, q[3], q[2])
	left, dLeft := findLineNearCorners(vertical, q[0], q[3])
	right, dRight := findLineNearCorners(vertical, q[1], q[2])
	if max(dTop, dBottom, dLeft, dRight) > maxDist {
		return Quad{}, false
	}
	return quadFromLines(top, right, bottom, left)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
