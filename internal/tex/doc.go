// Package tex drives the TeX engines: it resolves which program compiles a
// document and runs it through one of two strategies, a direct engine
// invocation that emulates texi2dvi or the texi2dvi wrapper script itself.
package tex
