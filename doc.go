// Package glsfit estimates linear regression models whose errors are
// correlated or heteroscedastic.
//
// Ordinary, weighted and generalized least squares, as well as regression with
// AR(p) errors, are handled by a single pipeline: a Whitener transforms the
// design and the response so that the errors become uncorrelated with constant
// variance, and the coefficients come from the pseudo-inverse of the whitened
// design.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/glsfit/linear"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // 最終列が切片
//	    X := mat.NewDense(4, 2, []float64{1, 1, 2, 1, 3, 1, 4, 1})
//	    y := mat.NewVecDense(4, []float64{2.1, 3.9, 6.2, 7.8})
//
//	    model, err := linear.NewOLS(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := model.Fit(y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Params(), res.BSE(), res.RSquared())
//	}
//
// # AR(p) errors
//
// The ar package alternates between a whitened fit and a Yule-Walker estimate
// of the residual autocorrelation for a fixed number of iterations:
//
//	f, _ := ar.NewFitter(2, ar.WithIterations(6))
//	out, err := f.Fit(X, y)
//	// out.Params.Rho, out.Results, out.History
//
// # Packages
//
//   - linear: whitening transforms, Model, Results and IsEstimable
//   - stats: Yule-Walker estimation and autocovariance
//   - ar: iterative AR(p) refitting
//   - metrics: sum-of-squares primitives
//   - diagnostics: residual and coefficient trace plots
//   - config: YAML job files
//   - core/parallel: chunked parallel loops
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Error Handling
//
// All errors carry a stack trace and can be classified with errors.Is:
//
//	if errors.Is(err, errors.ErrDegenerateModel) {
//	    // more observations than the design rank are required
//	}
//
// Gonum panics inside estimation entry points are recovered and returned as
// errors.
package glsfit
