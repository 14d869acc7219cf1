// Package dade reads and writes contact matrices in the DADE text format:
// a header of column labels followed by one row per bin carrying the values
// of the upper diagonal, whitespace separated. Matrices are symmetrised on
// load, exactly once.
package dade

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyInput is returned when the input holds no header line.
	ErrEmptyInput = errors.New("empty input")
	// ErrRaggedRow is returned when a row does not carry exactly the values
	// of the remaining upper diagonal.
	ErrRaggedRow = errors.New("wrong number of values")
	// ErrMissingRows is returned when the input ends before every row of the
	// matrix was read.
	ErrMissingRows = errors.New("missing rows")
	// ErrNotSquare is returned when a matrix that is not square is written.
	ErrNotSquare = errors.New("matrix must be square")
	// ErrLabelCount is returned when the labels do not match the matrix size.
	ErrLabelCount = errors.New("label count must match matrix size")
)

// headerLead is the corner token opening the header line. Readers drop it,
// whatever it is.
const headerLead = "id"

// Read parses a DADE matrix. It returns the symmetrised matrix and the
// column labels from the header.
func Read(r io.Reader) (*mat.Dense, []string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "unable to read header")
		}

		return nil, nil, ErrEmptyInput
	}

	header := strings.Fields(scanner.Text())
	if len(header) < 2 {
		return nil, nil, errors.Wrap(ErrEmptyInput, "header carries no labels")
	}

	labels := header[1:]
	total := len(labels)
	matrix := mat.NewDense(total, total, nil)

	row := 0
	line := 1

	for scanner.Scan() {
		line++

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if row >= total {
			return nil, nil, errors.Wrapf(ErrRaggedRow, "line %d: expected %d rows", line, total)
		}

		values := fields[1:]
		if len(values) != total-row {
			return nil, nil, errors.Wrapf(ErrRaggedRow, "line %d: expected %d values, got %d", line, total-row, len(values))
		}

		for i, raw := range values {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "unable to parse value %q on line %d", raw, line)
			}

			matrix.Set(row, row+i, value)
		}

		row++
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "unable to read matrix")
	}

	if row != total {
		return nil, nil, errors.Wrapf(ErrMissingRows, "expected %d rows, got %d", total, row)
	}

	symmetrize(matrix)

	return matrix, labels, nil
}

// Load reads the DADE matrix stored at path.
func Load(path string) (*mat.Dense, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	matrix, labels, err := Read(file)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to load %s", path)
	}

	return matrix, labels, nil
}

// Write writes the upper diagonal of matrix in DADE form. Labels may be nil,
// in which case numbered bin labels are generated.
func Write(w io.Writer, matrix *mat.Dense, labels []string) error {
	rows, cols := matrix.Dims()
	if rows != cols {
		return errors.Wrapf(ErrNotSquare, "%dx%d", rows, cols)
	}

	if labels == nil {
		labels = make([]string, rows)
		for i := range labels {
			labels[i] = "bin" + strconv.Itoa(i)
		}
	}

	if len(labels) != rows {
		return errors.Wrapf(ErrLabelCount, "%d labels for size %d", len(labels), rows)
	}

	buf := bufio.NewWriter(w)

	buf.WriteString(headerLead)

	for _, label := range labels {
		buf.WriteByte('\t')
		buf.WriteString(label)
	}

	buf.WriteByte('\n')

	for i := 0; i < rows; i++ {
		buf.WriteString(labels[i])

		for j := i; j < cols; j++ {
			buf.WriteByte('\t')
			buf.WriteString(strconv.FormatFloat(matrix.At(i, j), 'g', -1, 64))
		}

		buf.WriteByte('\n')
	}

	err := buf.Flush()
	if err != nil {
		return errors.Wrap(err, "unable to write matrix")
	}

	return nil
}

// Save writes the matrix to path, replacing any previous file atomically.
func Save(path string, matrix *mat.Dense, labels []string) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create pending file for %s", path)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op once replaced

	err = Write(pending, matrix, labels)
	if err != nil {
		return err
	}

	err = pending.CloseAtomicallyReplace()
	if err != nil {
		return errors.Wrapf(err, "unable to replace %s", path)
	}

	return nil
}

// symmetrize mirrors the upper diagonal below the diagonal: M + Mᵀ − diag(M).
func symmetrize(matrix *mat.Dense) {
	rows, _ := matrix.Dims()

	for i := 0; i < rows; i++ {
		for j := i + 1; j < rows; j++ {
			matrix.Set(j, i, matrix.At(i, j))
		}
	}
}
