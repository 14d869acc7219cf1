// Package render writes contact maps, differential maps and MD scatter
// plots as standalone SVG documents.
package render
