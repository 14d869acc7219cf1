// Package buildmatrix parses AppVeyor-style build-matrix configurations and
// runs their jobs locally: every platform and matrix row expands into one
// job whose install, build and test_script phases execute in order through
// the platform shell.
package buildmatrix
