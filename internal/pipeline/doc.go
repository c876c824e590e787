// Package pipeline is the batch driver around the job iterator: it prepares
// the output directory and render log, ranges over the jobs, prints progress
// lines, records history, packs icons, and reports a summary.
//
// Progress lines ("Scene <name>", "IMAGE\t<path>") go to the writer passed
// to Run and are printed only while standard output is not redirected.
package pipeline
