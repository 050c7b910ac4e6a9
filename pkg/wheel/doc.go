// Package wheel models the contents of a Python wheel as a virtual file
// tree. Three backends implement the Tree view: the .whl zip archive
// itself, an unpacked wheel directory on disk, and a bare *.dist-info
// directory that carries only the package metadata. Paths inside a tree
// are Location values, normalized slash-separated paths relative to the
// package root.
package wheel
