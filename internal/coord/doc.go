// Package coord implements the filesystem side of engine coordination:
// reading the controller's shared task document, looking up the entry
// addressed to one engine, optionally watching the document for changes,
// and publishing the engine's own status document.
package coord
