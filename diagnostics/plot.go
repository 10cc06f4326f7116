// Package diagnostics renders residual and convergence plots for fitted models.
package diagnostics

import (
	"fmt"

	"github.com/YuminosukeSato/glsfit/ar"
	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default image size used by Save.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// ResidualPlot は予測値に対する正規化残差の散布図を作る
func ResidualPlot(res *linear.Results) (*plot.Plot, error) {
	if res == nil {
		return nil, errors.NewValueError("diagnostics.ResidualPlot", "nil results")
	}

	pred := res.Predicted()
	resid := res.NormResid()
	pts := make(plotter.XYs, len(pred))
	for i := range pts {
		pts[i].X = pred[i]
		pts[i].Y = resid[i]
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s residuals", res.Kind())
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "normalized residual"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "residual scatter")
	}
	scatter.GlyphStyle.Color = plotutil.Color(0)
	scatter.GlyphStyle.Shape = plotutil.Shape(0)

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = plotutil.Color(1)
	zero.Dashes = plotutil.Dashes(1)

	p.Add(scatter, zero)
	return p, nil
}

// RhoTracePlot は反復ごとの AR 係数の推移を折れ線で描く
func RhoTracePlot(history []ar.Params) (*plot.Plot, error) {
	const op = "diagnostics.RhoTracePlot"
	if len(history) == 0 {
		return nil, errors.NewValueError(op, "empty history")
	}
	order := len(history[0].Rho)
	if order == 0 {
		return nil, errors.NewValueError(op, "history has no coefficients")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("AR(%d) coefficients", order)
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "rho"
	p.Add(plotter.NewGrid())

	for k := 0; k < order; k++ {
		pts := make(plotter.XYs, len(history))
		for i, params := range history {
			if len(params.Rho) != order {
				return nil, errors.NewDimensionError(op, order, len(params.Rho), 0)
			}
			pts[i].X = float64(i + 1)
			pts[i].Y = params.Rho[k]
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "rho_%d trace", k+1)
		}
		line.Color = plotutil.Color(k)
		points.GlyphStyle.Color = plotutil.Color(k)
		points.GlyphStyle.Shape = plotutil.Shape(k)

		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("rho_%d", k+1), line, points)
	}
	return p, nil
}

// Save は拡張子（.png, .svg, .pdf など）に応じた形式でファイルに書き出す
func Save(p *plot.Plot, path string) error {
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
