package sim

import (
	"fmt"
	"image/color"

	slam "github.com/milosgajdos/go-slam"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ellipsePoints is the number of points of a confidence ellipse outline
const ellipsePoints = 64

// NewMapPlot creates new plot of the simulation result res:
// true:      true robot trajectory and landmarks
// estimated: estimated robot trajectory and landmarks
// ellipses:  nStd confidence ellipses of the final robot and landmark position estimates
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * res is nil or has no final estimate
// * res has no robot poses
// * gonum plot fails to be created
func NewMapPlot(res *Result, nStd float64) (*plot.Plot, error) {
	if res == nil || res.Map == nil {
		return nil, errors.Errorf("invalid result supplied")
	}

	if len(res.Truth) == 0 || len(res.Poses) == 0 {
		return nil, errors.Errorf("invalid result dimensions")
	}

	p := plot.New()

	p.Title.Text = "EKF SLAM"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()

	legend.Top = true

	p.Legend = legend
	p.Add(plotter.NewGrid())

	// Make a line plotter for the true trajectory
	truthLine, err := plotter.NewLine(posePoints(res.Truth))
	if err != nil {
		return nil, err
	}
	truthLine.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthLine.LineStyle.Width = vg.Points(1)

	p.Add(truthLine)
	p.Legend.Add("true path", truthLine)

	// Make a line plotter for the estimated trajectory
	estLine, err := plotter.NewLine(posePoints(res.Poses))
	if err != nil {
		return nil, err
	}
	estLine.LineStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	estLine.LineStyle.Width = vg.Points(1)
	estLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(estLine)
	p.Legend.Add("estimated path", estLine)

	// Make a scatter plotter for the true landmarks
	if len(res.Landmarks) > 0 {
		lmScatter, err := plotter.NewScatter(landmarkPoints(res.Landmarks))
		if err != nil {
			return nil, err
		}
		lmScatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
		lmScatter.Shape = draw.PyramidGlyph{}
		lmScatter.GlyphStyle.Radius = vg.Points(3)

		p.Add(lmScatter)
		p.Legend.Add("true landmarks", lmScatter)
	}

	// Make a scatter plotter for the estimated landmarks
	lms := res.Map.Landmarks()
	if len(lms) > 0 {
		estScatter, err := plotter.NewScatter(landmarkPoints(lms))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create scatter")
		}
		estScatter.GlyphStyle.Color = color.RGBA{G: 128, A: 255}
		estScatter.Shape = draw.CrossGlyph{}
		estScatter.GlyphStyle.Radius = vg.Points(3)

		p.Add(estScatter)
		p.Legend.Add("estimated landmarks", estScatter)
	}

	ellipses, err := confidenceEllipses(res, nStd)
	if err != nil {
		return nil, err
	}

	for i, e := range ellipses {
		line, err := plotter.NewLine(e.Points(ellipsePoints))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = color.RGBA{G: 160, A: 255}
		line.LineStyle.Width = vg.Points(0.5)

		p.Add(line)
		if i == 0 {
			p.Legend.Add(fmt.Sprintf("%g sigma", nStd), line)
		}
	}

	return p, nil
}

// confidenceEllipses returns confidence ellipses of the final robot position and all landmarks
func confidenceEllipses(res *Result, nStd float64) ([]Ellipse, error) {
	m := res.Map

	pose := m.Pose()
	e, err := ConfidenceEllipse(pose.X, pose.Y, positionCov(m.PoseCov()), nStd)
	if err != nil {
		return nil, err
	}
	ellipses := []Ellipse{e}

	for i := 0; i < m.NumLandmarks(); i++ {
		l, err := m.Landmark(i)
		if err != nil {
			return nil, err
		}

		cov, err := m.LandmarkCov(i)
		if err != nil {
			return nil, err
		}

		e, err := ConfidenceEllipse(l.X, l.Y, cov, nStd)
		if err != nil {
			return nil, err
		}
		ellipses = append(ellipses, e)
	}

	return ellipses, nil
}

// positionCov returns [x, y] block of pose covariance c
func positionCov(c mat.Symmetric) mat.Symmetric {
	return mat.NewSymDense(2, []float64{
		c.At(0, 0), c.At(0, 1),
		c.At(1, 0), c.At(1, 1),
	})
}

func posePoints(poses []slam.Pose) plotter.XYs {
	pts := make(plotter.XYs, len(poses))
	for i := range poses {
		pts[i].X = poses[i].X
		pts[i].Y = poses[i].Y
	}

	return pts
}

func landmarkPoints(lms []slam.Landmark) plotter.XYs {
	pts := make(plotter.XYs, len(lms))
	for i := range lms {
		pts[i].X = lms[i].X
		pts[i].Y = lms[i].Y
	}

	return pts
}
