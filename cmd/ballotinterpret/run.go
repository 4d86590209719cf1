package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"

	"ballotscan/internal/ballotcard"
)

// electionConfig is the on-disk JSON shape for the narrow election contract
// ballotcard.Election needs. It lives next to the ballot images as
// election.json, discovered relative to the front page path.
type electionConfig struct {
	GridLayouts map[string]struct {
		FrontGeometry  geometryConfig           `json:"frontGeometry"`
		BackGeometry   geometryConfig           `json:"backGeometry"`
		FrontPositions []ballotcard.GridPosition `json:"frontPositions"`
		BackPositions  []ballotcard.GridPosition `json:"backPositions"`
	} `json:"gridLayouts"`
}

type geometryConfig struct {
	CanvasWidth      int     `json:"canvasWidth"`
	CanvasHeight     int     `json:"canvasHeight"`
	GridWidth        int     `json:"gridWidth"`
	GridHeight       int     `json:"gridHeight"`
	TimingMarkWidth  float64 `json:"timingMarkWidth"`
	TimingMarkHeight float64 `json:"timingMarkHeight"`
}

func (c geometryConfig) toGeometry() ballotcard.Geometry {
	return ballotcard.Geometry{
		CanvasWidth:      c.CanvasWidth,
		CanvasHeight:     c.CanvasHeight,
		GridWidth:        c.GridWidth,
		GridHeight:       c.GridHeight,
		TimingMarkWidth:  c.TimingMarkWidth,
		TimingMarkHeight: c.TimingMarkHeight,
	}
}

func loadElection(path string) (ballotcard.Election, ballotcard.Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return ballotcard.Election{}, ballotcard.Geometry{}, fmt.Errorf("open election config: %w", err)
	}
	defer f.Close()

	var cfg electionConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return ballotcard.Election{}, ballotcard.Geometry{}, fmt.Errorf("decode election config: %w", err)
	}

	election := ballotcard.Election{GridLayouts: map[string]ballotcard.GridLayout{}}
	var frontGeom ballotcard.Geometry
	for styleID, layout := range cfg.GridLayouts {
		frontGeom = layout.FrontGeometry.toGeometry()
		election.GridLayouts[styleID] = ballotcard.GridLayout{
			BallotStyleID:  styleID,
			FrontGeometry:  layout.FrontGeometry.toGeometry(),
			BackGeometry:   layout.BackGeometry.toGeometry(),
			FrontPositions: layout.FrontPositions,
			BackPositions:  layout.BackPositions,
		}
	}
	return election, frontGeom, nil
}

func loadBallotImage(path string, threshold byte) (*ballotcard.BallotImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray := (r*299 + g*587 + b*114) / 1000
			pixels[y*w+x] = byte(gray >> 8)
		}
	}

	return &ballotcard.BallotImage{Pixels: pixels, Width: w, Height: h, Threshold: threshold}, nil
}

func runInterpret(frontPath, backPath string) (*ballotcard.InterpretedBallotCard, error) {
	const defaultThreshold = 127

	front, err := loadBallotImage(frontPath, defaultThreshold)
	if err != nil {
		return nil, err
	}
	back, err := loadBallotImage(backPath, defaultThreshold)
	if err != nil {
		return nil, err
	}

	electionPath := filepath.Join(filepath.Dir(frontPath), "election.json")
	election, geom, err := loadElection(electionPath)
	if err != nil {
		return nil, err
	}

	opts := ballotcard.InterpretOptions{
		Completion: ballotcard.CompletionOptions{},
		Streak: ballotcard.StreakOptions{
			Enabled:                   true,
			MaxCumulativeStreakWidth:  2,
			RetryStreakWidthThreshold: 1,
		},
		MinimumDetectedScale: 0,
	}

	return ballotcard.InterpretCard(front, back, geom, election, opts)
}
