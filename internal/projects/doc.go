// Package projects is the on-disk project store. A project is one UTF-8 text
// file with the project extension (".fountain" by default) directly inside the
// project directory; the directory listing is the catalog.
//
// The store keeps no state about file contents between calls. List, Open and
// Save go straight to the filesystem.
package projects
