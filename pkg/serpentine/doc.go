// Package serpentine compares two contact matrices by serpentine binning.
//
// Pixels of both matrices are locally merged into connected groups, the
// serpentines, until every group carries enough signal in both matrices.
// Each group is then replaced by its mean value and a log2 ratio matrix is
// derived. The procedure is randomised, so Bin repeats it and averages the
// outcome over a number of independent iterations.
//
// The package also ships the statistical helpers used around binning:
// median absolute deviation, outlier filtering of weak or saturated bins,
// and the MD-trend estimation that suggests a binning threshold from the
// mean/difference cloud of a matrix pair.
package serpentine
