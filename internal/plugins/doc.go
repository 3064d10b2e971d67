// Package plugins holds the built-in task lifecycle plugins that implement
// the on-disk memoization protocol: the canonical parameter dump, the
// results dump, and the completion marker. The marker plugin must be
// registered last so that the marker is the final write into a store.
package plugins
