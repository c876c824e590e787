// Package jobs renders a fixed matrix of scenes × square resolutions.
//
// Each job overrides the scene's render settings, redirects standard output
// into the shared log file, and makes one render call. Both the settings and
// the descriptor are restored before the job's result is yielded, whether
// the render succeeded or not.
//
// Runner.All returns a lazy sequence: every pull renders one job
// synchronously. Ranging over it twice renders everything twice and appends
// to the log again. Breaking out early leaves already rendered files on
// disk.
package jobs
